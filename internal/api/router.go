package api

import (
	"net/http"
	"strings"

	"github.com/example/shelfstock/internal/api/middleware"
	"github.com/example/shelfstock/internal/auth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterDeps bundles everything the router wires together.
type RouterDeps struct {
	Handlers     *Handlers
	AuthHandlers *AuthHandlers
	JWT          *auth.JWTService
	Roles        auth.RoleMap
	Logger       *zap.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.AuthMiddleware(deps.JWT)
	perm := func(tokens ...string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(deps.Roles, tokens...)
	}
	h := deps.Handlers

	route := func(pattern string, handler http.Handler) {
		mux.Handle(pattern, middleware.Metrics(pattern, handler))
	}

	// Health and metrics
	route("/healthz", http.HandlerFunc(h.Healthz))
	route("/metrics", promhttp.Handler())

	// Auth
	route("/auth/register", authed(perm(auth.PermUsersManage)(method(http.MethodPost, deps.AuthHandlers.Register))))
	route("/auth/login", method(http.MethodPost, deps.AuthHandlers.Login))
	route("/auth/logout", method(http.MethodPost, deps.AuthHandlers.Logout))
	route("/auth/refresh", method(http.MethodPost, deps.AuthHandlers.Refresh))
	route("/auth/me", authed(method(http.MethodGet, deps.AuthHandlers.Me)))

	// Products
	route("/products", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			perm(auth.PermProductsView)(http.HandlerFunc(h.GetProducts)).ServeHTTP(w, r)
		case http.MethodPost:
			perm(auth.PermProductsCreate)(http.HandlerFunc(h.CreateProduct)).ServeHTTP(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	route("/products/", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/hard") && r.Method == http.MethodDelete:
			perm(auth.PermProductsHardDelete)(http.HandlerFunc(h.HardDeleteProduct)).ServeHTTP(w, r)
		case r.Method == http.MethodGet:
			perm(auth.PermProductsView)(http.HandlerFunc(h.GetProduct)).ServeHTTP(w, r)
		case r.Method == http.MethodPut:
			perm(auth.PermProductsEdit)(http.HandlerFunc(h.UpdateProduct)).ServeHTTP(w, r)
		case r.Method == http.MethodDelete:
			perm(auth.PermProductsDelete)(http.HandlerFunc(h.DeleteProduct)).ServeHTTP(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Shelves
	route("/shelves", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			perm(auth.PermProductsView)(http.HandlerFunc(h.GetShelves)).ServeHTTP(w, r)
		case http.MethodPost:
			perm(auth.PermShelvesManage)(http.HandlerFunc(h.CreateShelf)).ServeHTTP(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	route("/shelves/", authed(perm(auth.PermShelvesManage)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			h.RenameShelf(w, r)
		case http.MethodDelete:
			h.DeleteShelf(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}))))

	// Movements
	route("/movements", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			perm(auth.PermMovementsView)(http.HandlerFunc(h.GetMovements)).ServeHTTP(w, r)
		case http.MethodPost:
			perm(auth.PermMovementsCreate)(http.HandlerFunc(h.CreateMovement)).ServeHTTP(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Shelf inventory projection
	route("/shelf-inventory", authed(perm(auth.PermMovementsView)(method(http.MethodGet, h.GetShelfInventory))))

	// Offline queue sync
	route("/sync", authed(perm(auth.PermMovementsCreate)(method(http.MethodPost, h.TriggerSync))))

	// Notifications
	route("/notifications", authed(perm(auth.PermNotificationsView)(method(http.MethodGet, h.GetNotifications))))
	route("/notifications/", authed(perm(auth.PermNotificationsView)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/read") && r.Method == http.MethodPost {
			h.MarkNotificationRead(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}))))

	// Cart
	route("/cart", authed(perm(auth.PermStorefrontOrder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.GetCart(w, r)
		case http.MethodDelete:
			h.ClearCart(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}))))
	route("/cart/items", authed(perm(auth.PermStorefrontOrder)(method(http.MethodPost, h.AddToCart))))
	route("/cart/items/", authed(perm(auth.PermStorefrontOrder)(method(http.MethodDelete, h.RemoveFromCart))))

	// Wishlist
	route("/wishlist", authed(perm(auth.PermStorefrontOrder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.GetWishlist(w, r)
		case http.MethodPost:
			h.AddToWishlist(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}))))
	route("/wishlist/", authed(perm(auth.PermStorefrontOrder)(method(http.MethodDelete, h.RemoveFromWishlist))))

	return withLogging(deps.Logger, mux)
}

func method(m string, fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	})
}

func withLogging(log *zap.Logger, next http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug("request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}
