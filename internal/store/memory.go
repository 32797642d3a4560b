package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/shelfstock/internal/model"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used in tests and single-process setups.
type MemoryStore struct {
	mu            sync.RWMutex
	products      map[string]*model.Product
	shelves       map[string]*model.Shelf
	movements     []model.StockMovement
	users         map[string]*model.User
	notifications []model.Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]*model.Product),
		shelves:  make(map[string]*model.Shelf),
		users:    make(map[string]*model.User),
	}
}

// Products

func (s *MemoryStore) CreateProduct(ctx context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if !existing.IsDeleted && existing.Code == p.Code {
			return ErrDuplicate
		}
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	// Opening stock seeds the available counter.
	p.AvailableQty = p.OpeningStock + p.TotalIn - p.TotalOut
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListProducts(ctx context.Context, includeDeleted bool) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Product
	for _, p := range s.products {
		if p.IsDeleted && !includeDeleted {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Code = p.Code
	existing.Name = p.Name
	existing.Location = p.Location
	existing.Barcode = p.Barcode
	existing.MinStock = p.MinStock
	existing.Notes = p.Notes
	existing.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) UpdateProductLocation(ctx context.Context, id, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Location = location
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SoftDeleteProduct(ctx context.Context, id, deletedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	p.IsDeleted = true
	p.DeletedAt = &now
	p.DeletedBy = deletedBy
	p.UpdatedAt = now
	return nil
}

func (s *MemoryStore) HardDeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

// Shelves

func (s *MemoryStore) CreateShelf(ctx context.Context, sh *model.Shelf) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.shelves {
		if strings.EqualFold(existing.Name, sh.Name) {
			return ErrDuplicate
		}
	}
	if sh.ID == "" {
		sh.ID = uuid.New().String()
	}
	sh.CreatedAt = time.Now()
	cp := *sh
	s.shelves[sh.ID] = &cp
	return nil
}

func (s *MemoryStore) GetShelf(ctx context.Context, id string) (*model.Shelf, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sh, ok := s.shelves[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sh
	return &cp, nil
}

func (s *MemoryStore) ListShelves(ctx context.Context) ([]model.Shelf, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Shelf
	for _, sh := range s.shelves {
		out = append(out, *sh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) RenameShelf(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.shelves[id]
	if !ok {
		return ErrNotFound
	}
	for otherID, other := range s.shelves {
		if otherID != id && strings.EqualFold(other.Name, name) {
			return ErrDuplicate
		}
	}
	sh.Name = name
	return nil
}

func (s *MemoryStore) DeleteShelf(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shelves[id]; !ok {
		return ErrNotFound
	}
	delete(s.shelves, id)
	return nil
}

// Movements

func (s *MemoryStore) InsertMovement(ctx context.Context, m *model.StockMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[m.ProductID]
	if !ok {
		return ErrNotFound
	}

	switch m.Type {
	case model.MovementIn:
		p.TotalIn += m.Quantity
		p.AvailableSets += m.SetQuantity
	case model.MovementOut:
		if p.AvailableQty < m.Quantity || p.AvailableSets < m.SetQuantity {
			return ErrStockConflict
		}
		p.TotalOut += m.Quantity
		p.AvailableSets -= m.SetQuantity
	}
	p.AvailableQty = p.OpeningStock + p.TotalIn - p.TotalOut

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now()
	now := m.CreatedAt
	p.LastTransactionAt = &now
	p.UpdatedAt = now

	s.movements = append(s.movements, *m)
	return nil
}

func (s *MemoryStore) GetMovement(ctx context.Context, id string) (*model.EnrichedMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.movements {
		if m.ID != id {
			continue
		}
		em := model.EnrichedMovement{StockMovement: m}
		if p, ok := s.products[m.ProductID]; ok {
			em.ProductName = p.Name
			em.ProductCode = p.Code
		}
		return &em, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListMovements(ctx context.Context, productID string) ([]model.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.StockMovement
	for i := len(s.movements) - 1; i >= 0; i-- {
		m := s.movements[i]
		if m.IsDeleted {
			continue
		}
		if productID != "" && m.ProductID != productID {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Users

func (s *MemoryStore) CreateUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListUsersByRole(ctx context.Context, role string) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.User
	for _, u := range s.users {
		if u.IsActive && u.Role == role {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// Notifications

func (s *MemoryStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now()
	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *MemoryStore) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.UserID == "" || n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkNotificationRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].IsRead = true
			return nil
		}
	}
	return ErrNotFound
}
