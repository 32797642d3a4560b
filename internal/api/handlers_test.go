package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/shelfstock/internal/auth"
	"github.com/example/shelfstock/internal/model"
	"github.com/example/shelfstock/internal/movement"
	"github.com/example/shelfstock/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	store  *store.MemoryStore
	jwt    *auth.JWTService
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := store.NewMemoryStore()
	jwtService := auth.NewJWTService("test-secret-key-that-is-long-enough", 15*time.Minute, 24*time.Hour)
	svc := movement.NewService(st, nil, nil, nil, zap.NewNop())

	handlers := NewHandlers(st, svc, nil, nil, zap.NewNop())
	authHandlers := NewAuthHandlers(st, jwtService)
	router := NewRouter(RouterDeps{
		Handlers:     handlers,
		AuthHandlers: authHandlers,
		JWT:          jwtService,
		Logger:       zap.NewNop(),
	})
	return &testServer{store: st, jwt: jwtService, router: router}
}

func (ts *testServer) seedUser(t *testing.T, role string) string {
	t.Helper()
	u := &model.User{
		Email: role + "@example.com", Name: "Test " + role, Role: role, IsActive: true,
	}
	require.NoError(t, ts.store.CreateUser(context.Background(), u))
	token, _, err := ts.jwt.GenerateAccessToken(u.ID, u.Email, u.Name, u.Role)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func TestMovementRouteRequiresAuth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/movements", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMovementRouteRequiresPermission(t *testing.T) {
	ts := newTestServer(t)
	viewer := ts.seedUser(t, auth.RoleViewer)
	rec := ts.do(t, http.MethodPost, "/movements", viewer, map[string]any{
		"product_id": "p1", "movement_type": "in", "quantity": 1, "movement_date": "2026-08-30",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateMovementEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	staff := ts.seedUser(t, auth.RoleStaff)
	require.NoError(t, ts.store.CreateProduct(context.Background(), &model.Product{
		ID: "p1", Code: "W-100", Name: "Widget", OpeningStock: 10, AvailableQty: 10,
	}))

	rec := ts.do(t, http.MethodPost, "/movements", staff, map[string]any{
		"product_id": "p1", "movement_type": "out", "quantity": 4, "movement_date": "2026-08-30",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Movement *model.EnrichedMovement `json:"movement"`
		Notices  []movement.Notice       `json:"notices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Movement)
	assert.Equal(t, "Widget", resp.Movement.ProductName)
	require.Len(t, resp.Notices, 1)
	assert.Equal(t, movement.NoticeSuccess, resp.Notices[0].Level)

	p, err := ts.store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 6, p.AvailableQty)
}

func TestCreateMovementInsufficientStock(t *testing.T) {
	ts := newTestServer(t)
	staff := ts.seedUser(t, auth.RoleStaff)
	require.NoError(t, ts.store.CreateProduct(context.Background(), &model.Product{
		ID: "p1", Code: "W-100", Name: "Widget", OpeningStock: 3, AvailableQty: 3,
	}))

	rec := ts.do(t, http.MethodPost, "/movements", staff, map[string]any{
		"product_id": "p1", "movement_type": "out", "quantity": 5, "movement_date": "2026-08-30",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	p, err := ts.store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.AvailableQty, "a rejected movement must not change stock")
}

func TestShelfInventoryRoute(t *testing.T) {
	ts := newTestServer(t)
	staff := ts.seedUser(t, auth.RoleStaff)
	require.NoError(t, ts.store.CreateProduct(context.Background(), &model.Product{
		ID: "p1", Code: "W-100", Name: "Widget", Location: "Aisle 1",
		OpeningStock: 5, AvailableQty: 5,
	}))

	rec := ts.do(t, http.MethodGet, "/shelf-inventory", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var shelves []struct {
		Shelf string `json:"shelf"`
		Rows  []struct {
			ProductName string `json:"product_name"`
			Units       int    `json:"units"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shelves))
	require.Len(t, shelves, 1)
	assert.Equal(t, "Aisle 1", shelves[0].Shelf)
	assert.Equal(t, 5, shelves[0].Rows[0].Units)
}

func TestProductCreateRequiresManagerRole(t *testing.T) {
	ts := newTestServer(t)
	staff := ts.seedUser(t, auth.RoleStaff)
	manager := ts.seedUser(t, auth.RoleManager)

	body := map[string]any{"code": "W-100", "name": "Widget", "opening_stock": 5}
	rec := ts.do(t, http.MethodPost, "/products", staff, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/products", manager, body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Duplicate product codes are rejected.
	rec = ts.do(t, http.MethodPost, "/products", manager, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginAndMe(t *testing.T) {
	ts := newTestServer(t)
	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)
	require.NoError(t, ts.store.CreateUser(context.Background(), &model.User{
		Email: "op@example.com", PasswordHash: hash, Name: "Op", Role: auth.RoleStaff, IsActive: true,
	}))

	rec := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "op@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var accessToken string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "access_token" {
			accessToken = c.Value
		}
	}
	require.NotEmpty(t, accessToken)

	rec = ts.do(t, http.MethodGet, "/auth/me", accessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "op@example.com", me.Email)

	rec = ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "op@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProductListSearch(t *testing.T) {
	ts := newTestServer(t)
	viewer := ts.seedUser(t, auth.RoleViewer)
	require.NoError(t, ts.store.CreateProduct(context.Background(), &model.Product{
		Code: "W-100", Name: "Widget", Barcode: "49001234", OpeningStock: 5,
	}))
	require.NoError(t, ts.store.CreateProduct(context.Background(), &model.Product{
		Code: "G-200", Name: "Gadget", OpeningStock: 5,
	}))

	rec := ts.do(t, http.MethodGet, "/products?search=wiDGet", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var products []model.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, "W-100", products[0].Code)

	// Barcode substring matches too.
	rec = ts.do(t, http.MethodGet, "/products?search=1234", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	products = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Widget", products[0].Name)

	// No filter returns everything.
	rec = ts.do(t, http.MethodGet, "/products", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	products = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	assert.Len(t, products, 2)
}
