package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/shelfstock/internal/model"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ConnectPostgres establishes a connection to PostgreSQL.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// Products

const productColumns = `id, code, name, location, barcode, opening_stock, total_in, total_out,
	available_qty, available_sets, min_stock, last_transaction_at, notes,
	is_deleted, deleted_at, deleted_by, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	var barcode, notes, deletedBy sql.NullString
	var lastTx, deletedAt sql.NullTime
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Location, &barcode, &p.OpeningStock,
		&p.TotalIn, &p.TotalOut, &p.AvailableQty, &p.AvailableSets, &p.MinStock,
		&lastTx, &notes, &p.IsDeleted, &deletedAt, &deletedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Barcode = barcode.String
	p.Notes = notes.String
	p.DeletedBy = deletedBy.String
	if lastTx.Valid {
		t := lastTx.Time
		p.LastTransactionAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		p.DeletedAt = &t
	}
	return &p, nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, p *model.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.AvailableQty = p.OpeningStock + p.TotalIn - p.TotalOut

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, code, name, location, barcode, opening_stock, total_in, total_out,
			available_qty, available_sets, min_stock, notes, is_deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, false, $13, $13)`,
		p.ID, p.Code, p.Name, p.Location, p.Barcode, p.OpeningStock, p.TotalIn, p.TotalOut,
		p.AvailableQty, p.AvailableSets, p.MinStock, p.Notes, now)
	if err != nil {
		return mapPQError(err)
	}
	return nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *PostgresStore) ListProducts(ctx context.Context, includeDeleted bool) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if !includeDeleted {
		query += ` WHERE is_deleted = false`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET code = $2, name = $3, location = $4, barcode = $5,
			min_stock = $6, notes = $7, updated_at = $8
		 WHERE id = $1`,
		p.ID, p.Code, p.Name, p.Location, p.Barcode, p.MinStock, p.Notes, time.Now())
	if err != nil {
		return mapPQError(err)
	}
	return requireRow(res)
}

func (s *PostgresStore) UpdateProductLocation(ctx context.Context, id, location string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET location = $2, updated_at = $3 WHERE id = $1`,
		id, location, time.Now())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PostgresStore) SoftDeleteProduct(ctx context.Context, id, deletedBy string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET is_deleted = true, deleted_at = $2, deleted_by = $3, updated_at = $2
		 WHERE id = $1 AND is_deleted = false`,
		id, time.Now(), deletedBy)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PostgresStore) HardDeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Shelves

func (s *PostgresStore) CreateShelf(ctx context.Context, sh *model.Shelf) error {
	if sh.ID == "" {
		sh.ID = uuid.New().String()
	}
	sh.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shelves (id, name, description, created_at) VALUES ($1, $2, $3, $4)`,
		sh.ID, sh.Name, sh.Description, sh.CreatedAt)
	if err != nil {
		return mapPQError(err)
	}
	return nil
}

func (s *PostgresStore) GetShelf(ctx context.Context, id string) (*model.Shelf, error) {
	var sh model.Shelf
	var desc sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM shelves WHERE id = $1`, id).
		Scan(&sh.ID, &sh.Name, &desc, &sh.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sh.Description = desc.String
	return &sh, nil
}

func (s *PostgresStore) ListShelves(ctx context.Context) ([]model.Shelf, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, created_at FROM shelves ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Shelf
	for rows.Next() {
		var sh model.Shelf
		var desc sql.NullString
		if err := rows.Scan(&sh.ID, &sh.Name, &desc, &sh.CreatedAt); err != nil {
			return nil, err
		}
		sh.Description = desc.String
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RenameShelf(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE shelves SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return mapPQError(err)
	}
	return requireRow(res)
}

func (s *PostgresStore) DeleteShelf(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shelves WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Movements

// InsertMovement appends the ledger row and updates the product counters in a
// single transaction. The conditional UPDATE is the authoritative non-negative
// guard: a stock-out racing a concurrent write is rejected here regardless of
// what the caller last read.
func (s *PostgresStore) InsertMovement(ctx context.Context, m *model.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var res sql.Result
	switch m.Type {
	case model.MovementIn:
		res, err = tx.ExecContext(ctx,
			`UPDATE products SET total_in = total_in + $2,
				available_qty = opening_stock + (total_in + $2) - total_out,
				available_sets = available_sets + $3,
				last_transaction_at = $4, updated_at = $4
			 WHERE id = $1`,
			m.ProductID, m.Quantity, m.SetQuantity, m.CreatedAt)
	case model.MovementOut:
		res, err = tx.ExecContext(ctx,
			`UPDATE products SET total_out = total_out + $2,
				available_qty = opening_stock + total_in - (total_out + $2),
				available_sets = available_sets - $3,
				last_transaction_at = $4, updated_at = $4
			 WHERE id = $1 AND available_qty >= $2 AND available_sets >= $3`,
			m.ProductID, m.Quantity, m.SetQuantity, m.CreatedAt)
	default:
		return fmt.Errorf("unknown movement type %q", m.Type)
	}
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the product is gone or the guard rejected the stock-out.
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, m.ProductID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStockConflict
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO stock_movements (id, product_id, movement_type, quantity, set_quantity,
			movement_date, movement_time, notes, shelf_id, shelf_name, handled_by, created_by,
			is_deleted, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, false, $13)`,
		m.ID, m.ProductID, string(m.Type), m.Quantity, m.SetQuantity,
		m.MovementDate, m.MovementTime, m.Notes, m.ShelfID, m.ShelfName,
		m.HandledBy, m.CreatedBy, m.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

const movementColumns = `m.id, m.product_id, m.movement_type, m.quantity, m.set_quantity,
	m.movement_date, m.movement_time, m.notes, m.shelf_id, m.shelf_name,
	m.handled_by, m.created_by, m.is_deleted, m.created_at`

func scanMovement(row interface{ Scan(...any) error }, m *model.StockMovement) error {
	var movementTime, notes, shelfID, shelfName sql.NullString
	var typ string
	err := row.Scan(&m.ID, &m.ProductID, &typ, &m.Quantity, &m.SetQuantity,
		&m.MovementDate, &movementTime, &notes, &shelfID, &shelfName,
		&m.HandledBy, &m.CreatedBy, &m.IsDeleted, &m.CreatedAt)
	if err != nil {
		return err
	}
	m.Type = model.MovementType(typ)
	m.MovementTime = movementTime.String
	m.Notes = notes.String
	m.ShelfID = shelfID.String
	m.ShelfName = shelfName.String
	return nil
}

func (s *PostgresStore) GetMovement(ctx context.Context, id string) (*model.EnrichedMovement, error) {
	var em model.EnrichedMovement
	var productName, productCode sql.NullString
	row := s.db.QueryRowContext(ctx,
		`SELECT `+movementColumns+`, p.name, p.code
		 FROM stock_movements m
		 LEFT JOIN products p ON p.id = m.product_id
		 WHERE m.id = $1`, id)

	var movementTime, notes, shelfID, shelfName sql.NullString
	var typ string
	err := row.Scan(&em.ID, &em.ProductID, &typ, &em.Quantity, &em.SetQuantity,
		&em.MovementDate, &movementTime, &notes, &shelfID, &shelfName,
		&em.HandledBy, &em.CreatedBy, &em.IsDeleted, &em.CreatedAt,
		&productName, &productCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	em.Type = model.MovementType(typ)
	em.MovementTime = movementTime.String
	em.Notes = notes.String
	em.ShelfID = shelfID.String
	em.ShelfName = shelfName.String
	em.ProductName = productName.String
	em.ProductCode = productCode.String
	return &em, nil
}

func (s *PostgresStore) ListMovements(ctx context.Context, productID string) ([]model.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements m WHERE m.is_deleted = false`
	args := []any{}
	if productID != "" {
		query += ` AND m.product_id = $1`
		args = append(args, productID)
	}
	query += ` ORDER BY m.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StockMovement
	for rows.Next() {
		var m model.StockMovement
		if err := scanMovement(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Users

func (s *PostgresStore) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, role, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.IsActive, now)
	if err != nil {
		return mapPQError(err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `id = $1`, id)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `LOWER(email) = LOWER($1)`, email)
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, role, is_active, created_at, updated_at
		 FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) ListUsersByRole(ctx context.Context, role string) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, password_hash, name, role, is_active, created_at, updated_at
		 FROM users WHERE role = $1 AND is_active ORDER BY email`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Notifications

func (s *PostgresStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, kind, title, message, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, false, $6)`,
		n.ID, n.UserID, n.Kind, n.Title, n.Message, n.CreatedAt)
	return err
}

func (s *PostgresStore) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, kind, title, message, is_read, created_at
		 FROM notifications
		 WHERE user_id = '' OR user_id = $1
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
