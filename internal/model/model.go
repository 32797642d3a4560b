package model

import "time"

// MovementType distinguishes stock-in from stock-out ledger entries.
type MovementType string

const (
	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	return t == MovementIn || t == MovementOut
}

// Product is a stocked item. The counter fields (TotalIn, TotalOut,
// AvailableQty, AvailableSets) are maintained by the movement store on every
// ledger insert; nothing else may write them.
type Product struct {
	ID                string     `json:"id" db:"id"`
	Code              string     `json:"code" db:"code"`
	Name              string     `json:"name" db:"name"`
	Location          string     `json:"location" db:"location"` // default shelf name
	Barcode           string     `json:"barcode,omitempty" db:"barcode"`
	OpeningStock      int        `json:"opening_stock" db:"opening_stock"`
	TotalIn           int        `json:"total_in" db:"total_in"`
	TotalOut          int        `json:"total_out" db:"total_out"`
	AvailableQty      int        `json:"available_qty" db:"available_qty"`
	AvailableSets     int        `json:"available_sets" db:"available_sets"`
	MinStock          int        `json:"min_stock" db:"min_stock"`
	LastTransactionAt *time.Time `json:"last_transaction_at,omitempty" db:"last_transaction_at"`
	Notes             string     `json:"notes,omitempty" db:"notes"`
	IsDeleted         bool       `json:"is_deleted,omitempty" db:"is_deleted"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	DeletedBy         string     `json:"deleted_by,omitempty" db:"deleted_by"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// IsLowStock reports whether available units have fallen below the configured
// minimum threshold.
func (p *Product) IsLowStock() bool {
	return p.AvailableQty < p.MinStock
}

// Shelf is a named physical storage location.
type Shelf struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// StockMovement is an immutable ledger entry. ShelfName is snapshotted at
// write time so deleting a shelf later does not re-attribute history.
type StockMovement struct {
	ID           string       `json:"id" db:"id"`
	ProductID    string       `json:"product_id" db:"product_id"`
	Type         MovementType `json:"movement_type" db:"movement_type"`
	Quantity     int          `json:"quantity" db:"quantity"`
	SetQuantity  int          `json:"set_quantity" db:"set_quantity"`
	MovementDate string       `json:"movement_date" db:"movement_date"` // YYYY-MM-DD
	MovementTime string       `json:"movement_time,omitempty" db:"movement_time"` // HH:MM, may be empty
	Notes        string       `json:"notes,omitempty" db:"notes"`
	ShelfID      string       `json:"shelf_id,omitempty" db:"shelf_id"`
	ShelfName    string       `json:"shelf_name,omitempty" db:"shelf_name"`
	HandledBy    string       `json:"handled_by" db:"handled_by"` // handling user's display name
	CreatedBy    string       `json:"created_by" db:"created_by"`
	IsDeleted    bool         `json:"is_deleted,omitempty" db:"is_deleted"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// EnrichedMovement is a ledger entry joined with product and shelf names for
// display.
type EnrichedMovement struct {
	StockMovement
	ProductName string `json:"product_name"`
	ProductCode string `json:"product_code"`
}

// User is an operator account.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	Role         string    `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Notification kinds shown in the notification center.
const (
	NotificationLowStock = "low_stock"
	NotificationMovement = "movement"
)

// Notification is an entry in the notification center. An empty UserID means
// the notification is visible to everyone.
type Notification struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id,omitempty" db:"user_id"`
	Kind      string    `json:"kind" db:"kind"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CartItem is a storefront cart line.
type CartItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// Cart is a per-user storefront cart.
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Wishlist is a per-user set of saved product ids.
type Wishlist struct {
	UserID     string    `json:"user_id"`
	ProductIDs []string  `json:"product_ids"`
	UpdatedAt  time.Time `json:"updated_at"`
}
