package store

import (
	"context"
	"errors"

	"github.com/example/shelfstock/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint (product code, shelf
	// name, user email) would be violated.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStockConflict is returned by MovementStore.Insert when applying a
	// stock-out would drive a product's available units or sets below zero.
	// This is the authoritative guard; the movement service's own check is
	// only a fast-fail against its latest read.
	ErrStockConflict = errors.New("insufficient stock for movement")
)

// ProductStore persists products and their cached stock counters.
type ProductStore interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, includeDeleted bool) ([]model.Product, error)
	// UpdateProduct writes the editable fields (code, name, location, barcode,
	// min stock, notes). Stock counters are never written through here.
	UpdateProduct(ctx context.Context, p *model.Product) error
	// UpdateProductLocation changes only the default shelf location. Used by
	// the stock-in side effect.
	UpdateProductLocation(ctx context.Context, id, location string) error
	SoftDeleteProduct(ctx context.Context, id, deletedBy string) error
	HardDeleteProduct(ctx context.Context, id string) error
}

// ShelfStore persists named storage locations.
type ShelfStore interface {
	CreateShelf(ctx context.Context, s *model.Shelf) error
	GetShelf(ctx context.Context, id string) (*model.Shelf, error)
	ListShelves(ctx context.Context) ([]model.Shelf, error)
	RenameShelf(ctx context.Context, id, name string) error
	// DeleteShelf removes the shelf from the picklist only. Products and
	// movements keep their snapshotted shelf names.
	DeleteShelf(ctx context.Context, id string) error
}

// MovementStore persists the append-only stock movement ledger.
type MovementStore interface {
	// InsertMovement appends a ledger row and updates the product's cached
	// counters in the same transaction, enforcing
	// available = opening + totalIn - totalOut and non-negativity.
	InsertMovement(ctx context.Context, m *model.StockMovement) error
	GetMovement(ctx context.Context, id string) (*model.EnrichedMovement, error)
	// ListMovements returns non-deleted ledger rows, newest first. An empty
	// productID returns the whole ledger.
	ListMovements(ctx context.Context, productID string) ([]model.StockMovement, error)
}

// UserStore persists operator accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// ListUsersByRole returns active users holding the given role. Used by
	// the notifier to address low-stock alerts.
	ListUsersByRole(ctx context.Context, role string) ([]model.User, error)
}

// NotificationStore persists the notification center.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	// ListNotifications returns broadcast notifications plus those addressed
	// to userID, newest first.
	ListNotifications(ctx context.Context, userID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// Store bundles all persistence interfaces. Both the Postgres and in-memory
// implementations satisfy it.
type Store interface {
	ProductStore
	ShelfStore
	MovementStore
	UserStore
	NotificationStore
}
