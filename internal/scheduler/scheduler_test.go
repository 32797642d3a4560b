package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/example/shelfstock/internal/event"
	"github.com/example/shelfstock/internal/model"
	"github.com/example/shelfstock/internal/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturePublisher struct {
	events []event.Envelope
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, _ string, e any) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e.(event.Envelope))
	return nil
}

func seed(t *testing.T, st *mocks.MockStore, id string, available, min int) {
	t.Helper()
	require.NoError(t, st.CreateProduct(context.Background(), &model.Product{
		ID: id, Code: id, Name: "Product " + id,
		OpeningStock: available, AvailableQty: available, MinStock: min,
	}))
}

func TestScanLowStockPublishesForProductsBelowThreshold(t *testing.T) {
	st := mocks.NewMockStore()
	seed(t, st, "low", 1, 5)
	seed(t, st, "ok", 10, 5)
	pub := &capturePublisher{}
	s := New(st, pub, "", zap.NewNop())

	n := s.ScanLowStock(context.Background())
	assert.Equal(t, 1, n)
	require.Len(t, pub.events, 1)
	assert.Equal(t, event.TypeLowStockDetected, pub.events[0].EventType)
	assert.Equal(t, "low", pub.events[0].ProductID)
}

func TestScanLowStockAlertsOncePerEpisode(t *testing.T) {
	st := mocks.NewMockStore()
	seed(t, st, "low", 1, 5)
	pub := &capturePublisher{}
	s := New(st, pub, "", zap.NewNop())

	assert.Equal(t, 1, s.ScanLowStock(context.Background()))
	// Still low on the next scan: no duplicate alert.
	assert.Equal(t, 0, s.ScanLowStock(context.Background()))
	require.Len(t, pub.events, 1)
}

func TestScanLowStockRetriesAfterPublishFailure(t *testing.T) {
	st := mocks.NewMockStore()
	seed(t, st, "low", 1, 5)
	pub := &capturePublisher{err: errors.New("broker down")}
	s := New(st, pub, "", zap.NewNop())

	assert.Equal(t, 0, s.ScanLowStock(context.Background()))

	pub.err = nil
	assert.Equal(t, 1, s.ScanLowStock(context.Background()))
	require.Len(t, pub.events, 1)
}
