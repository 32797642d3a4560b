package mocks

import (
	"context"

	"github.com/example/shelfstock/internal/model"
	"github.com/example/shelfstock/internal/store"
)

// MockStore wraps the in-memory store with call recording and error injection
// for testing. Only the methods the movement service exercises are overridden;
// everything else falls through to MemoryStore.
type MockStore struct {
	*store.MemoryStore

	// For tracking calls in tests
	InsertCalls   []model.StockMovement
	LocationCalls []LocationCall

	// Injected errors
	InsertErr         error
	GetMovementErr    error
	GetProductErr     error
	UpdateLocationErr error
}

// LocationCall records parameters passed to UpdateProductLocation
type LocationCall struct {
	ProductID string
	Location  string
}

// NewMockStore creates a MockStore backed by a fresh MemoryStore.
func NewMockStore() *MockStore {
	return &MockStore{MemoryStore: store.NewMemoryStore()}
}

func (m *MockStore) InsertMovement(ctx context.Context, mv *model.StockMovement) error {
	m.InsertCalls = append(m.InsertCalls, *mv)
	if m.InsertErr != nil {
		return m.InsertErr
	}
	return m.MemoryStore.InsertMovement(ctx, mv)
}

func (m *MockStore) GetMovement(ctx context.Context, id string) (*model.EnrichedMovement, error) {
	if m.GetMovementErr != nil {
		return nil, m.GetMovementErr
	}
	return m.MemoryStore.GetMovement(ctx, id)
}

func (m *MockStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	if m.GetProductErr != nil {
		return nil, m.GetProductErr
	}
	return m.MemoryStore.GetProduct(ctx, id)
}

func (m *MockStore) UpdateProductLocation(ctx context.Context, id, location string) error {
	m.LocationCalls = append(m.LocationCalls, LocationCall{ProductID: id, Location: location})
	if m.UpdateLocationErr != nil {
		return m.UpdateLocationErr
	}
	return m.MemoryStore.UpdateProductLocation(ctx, id, location)
}
