package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/shelfstock/internal/auth"
	"github.com/example/shelfstock/internal/model"
	"github.com/example/shelfstock/internal/movement"
	"github.com/example/shelfstock/internal/projection"
	"github.com/example/shelfstock/internal/store"
	"github.com/example/shelfstock/internal/storefront"
	"github.com/example/shelfstock/internal/syncqueue"
	"go.uber.org/zap"
)

type Handlers struct {
	store      store.Store
	movements  *movement.Service
	syncer     *syncqueue.Syncer
	storefront *storefront.Service
	log        *zap.Logger
}

func NewHandlers(st store.Store, movements *movement.Service, syncer *syncqueue.Syncer, sf *storefront.Service, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{store: st, movements: movements, syncer: syncer, storefront: sf, log: log}
}

// Product Handlers

type createProductRequest struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	Barcode      string `json:"barcode"`
	OpeningStock int    `json:"opening_stock"`
	MinStock     int    `json:"min_stock"`
	Notes        string `json:"notes"`
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" || req.Name == "" {
		respondJSONError(w, "code and name are required", http.StatusBadRequest)
		return
	}
	if req.OpeningStock < 0 {
		respondJSONError(w, "opening stock must not be negative", http.StatusBadRequest)
		return
	}

	p := &model.Product{
		Code:         req.Code,
		Name:         req.Name,
		Location:     req.Location,
		Barcode:      req.Barcode,
		OpeningStock: req.OpeningStock,
		AvailableQty: req.OpeningStock, // opening stock seeds availability
		MinStock:     req.MinStock,
		Notes:        req.Notes,
	}
	if err := h.store.CreateProduct(r.Context(), p); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeDeleted := q.Get("include_deleted") == "true"
	products, err := h.store.ListProducts(r.Context(), includeDeleted)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if search := q.Get("search"); search != "" {
		filtered := make([]model.Product, 0, len(products))
		for i := range products {
			if projection.MatchesSearch(&products[i], search) {
				filtered = append(filtered, products[i])
			}
		}
		products = filtered
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/products/")
	p, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/products/")
	p, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	var req struct {
		Code     *string `json:"code"`
		Name     *string `json:"name"`
		Location *string `json:"location"`
		Barcode  *string `json:"barcode"`
		MinStock *int    `json:"min_stock"`
		Notes    *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code != nil {
		p.Code = *req.Code
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Location != nil {
		p.Location = *req.Location
	}
	if req.Barcode != nil {
		p.Barcode = *req.Barcode
	}
	if req.MinStock != nil {
		p.MinStock = *req.MinStock
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}

	if err := h.store.UpdateProduct(r.Context(), p); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DeleteProduct archives a product. The default is a soft delete; the
// hard-delete variant is routed separately and permission-gated harder.
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/products/")
	claims, _ := auth.ClaimsFromContext(r.Context())
	deletedBy := ""
	if claims != nil {
		deletedBy = claims.UserID
	}
	if err := h.store.SoftDeleteProduct(r.Context(), id, deletedBy); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "product archived"})
}

func (h *Handlers) HardDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/products/")
	id = strings.TrimSuffix(id, "/hard")
	if err := h.store.HardDeleteProduct(r.Context(), id); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

// Shelf Handlers

func (h *Handlers) GetShelves(w http.ResponseWriter, r *http.Request) {
	shelves, err := h.store.ListShelves(r.Context())
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, shelves)
}

func (h *Handlers) CreateShelf(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		respondJSONError(w, "name is required", http.StatusBadRequest)
		return
	}

	sh := &model.Shelf{Name: req.Name, Description: req.Description}
	if err := h.store.CreateShelf(r.Context(), sh); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sh)
}

func (h *Handlers) RenameShelf(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/shelves/")
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		respondJSONError(w, "name is required", http.StatusBadRequest)
		return
	}
	if err := h.store.RenameShelf(r.Context(), id, req.Name); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "shelf renamed"})
}

func (h *Handlers) DeleteShelf(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/shelves/")
	if err := h.store.DeleteShelf(r.Context(), id); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "shelf removed"})
}

// Movement Handlers

func (h *Handlers) GetMovements(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("product_id")
	movements, err := h.store.ListMovements(r.Context(), productID)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, movements)
}

// movementResponse couples the created row (null while offline-queued) with
// the notices the service emitted for the user.
type movementResponse struct {
	Movement *model.EnrichedMovement `json:"movement"`
	Notices  []movement.Notice       `json:"notices"`
}

func (h *Handlers) CreateMovement(w http.ResponseWriter, r *http.Request) {
	var in movement.CreateMovementInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	notices := &movement.NoticeLog{}
	result, err := h.movements.Create(r.Context(), in, notices)
	if err != nil {
		status := h.movementErrorStatus(err)
		respondJSON(w, status, movementResponse{Notices: notices.Notices()})
		return
	}

	status := http.StatusCreated
	if result == nil {
		// Accepted into the offline queue, not yet persisted.
		status = http.StatusAccepted
	}
	respondJSON(w, status, movementResponse{Movement: result, Notices: notices.Notices()})
}

func (h *Handlers) movementErrorStatus(err error) int {
	switch {
	case errors.Is(err, movement.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, movement.ErrProfileMissing):
		return http.StatusUnauthorized
	case errors.Is(err, movement.ErrInsufficientStock),
		errors.Is(err, store.ErrStockConflict):
		return http.StatusConflict
	case errors.Is(err, movement.ErrInvalidType),
		errors.Is(err, movement.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Shelf Inventory

func (h *Handlers) GetShelfInventory(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context(), false)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	movements, err := h.store.ListMovements(r.Context(), "")
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	search := r.URL.Query().Get("search")
	respondJSON(w, http.StatusOK, projection.Project(products, movements, search))
}

// Sync

func (h *Handlers) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		respondJSONError(w, "no sync queue configured", http.StatusNotFound)
		return
	}
	notices := &movement.NoticeLog{}
	synced, err := h.syncer.SyncAll(r.Context(), notices)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"synced":  synced,
		"notices": notices.Notices(),
	})
}

// Notification Handlers

func (h *Handlers) GetNotifications(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	userID := ""
	if claims != nil {
		userID = claims.UserID
	}
	ns, err := h.store.ListNotifications(r.Context(), userID)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ns)
}

func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/notifications/")
	id = strings.TrimSuffix(id, "/read")
	if err := h.store.MarkNotificationRead(r.Context(), id); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "notification read"})
}

// Cart Handlers

// storefrontEnabled guards the cart/wishlist routes; the storefront is only
// wired when Redis is configured.
func (h *Handlers) storefrontEnabled(w http.ResponseWriter) bool {
	if h.storefront == nil {
		respondJSONError(w, "storefront disabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	if !h.storefrontEnabled(w) {
		return
	}
	cart, err := h.storefront.GetCart(r.Context(), mustUserID(r))
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	if !h.storefrontEnabled(w) {
		return
	}
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cart, err := h.storefront.AddItem(r.Context(), mustUserID(r), req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, storefront.ErrInvalidProduct), errors.Is(err, storefront.ErrInvalidQuantity):
			respondJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, storefront.ErrUnavailable):
			respondJSONError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, store.ErrNotFound):
			respondJSONError(w, "product not found", http.StatusNotFound)
		default:
			respondJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	if !h.storefrontEnabled(w) {
		return
	}
	productID := extractPathParam(r.URL.Path, "/cart/items/")
	cart, err := h.storefront.RemoveItem(r.Context(), mustUserID(r), productID)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	if !h.storefrontEnabled(w) {
		return
	}
	if err := h.storefront.ClearCart(r.Context(), mustUserID(r)); err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}

// Wishlist Handlers

func (h *Handlers) GetWishlist(w http.ResponseWriter, r *http.Request) {
	if !h.storefrontEnabled(w) {
		return
	}
	wl, err := h.storefront.GetWishlist(r.Context(), mustUserID(r))
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, wl)
}

func (h *Handlers) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	if !h.storefrontEnabled(w) {
		return
	}
	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	wl, err := h.storefront.AddToWishlist(r.Context(), mustUserID(r), req.ProductID)
	if err != nil {
		switch {
		case errors.Is(err, storefront.ErrInvalidProduct):
			respondJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, store.ErrNotFound):
			respondJSONError(w, "product not found", http.StatusNotFound)
		default:
			respondJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	respondJSON(w, http.StatusOK, wl)
}

func (h *Handlers) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	if !h.storefrontEnabled(w) {
		return
	}
	productID := extractPathParam(r.URL.Path, "/wishlist/")
	wl, err := h.storefront.RemoveFromWishlist(r.Context(), mustUserID(r), productID)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, wl)
}

// Health

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper functions

func (h *Handlers) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondJSONError(w, "not found", http.StatusNotFound)
	case errors.Is(err, store.ErrDuplicate):
		respondJSONError(w, "already exists", http.StatusConflict)
	default:
		h.log.Error("store error", zap.Error(err))
		respondJSONError(w, "internal error", http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

// mustUserID returns the authenticated user's id. Routes using it sit behind
// AuthMiddleware, so claims are always present.
func mustUserID(r *http.Request) string {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		return ""
	}
	return claims.UserID
}
