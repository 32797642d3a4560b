package storefront

import (
	"context"
	"os"
	"testing"

	"github.com/example/shelfstock/internal/model"
	"github.com/example/shelfstock/internal/store/mocks"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddItemValidatesBeforeTouchingState(t *testing.T) {
	svc := NewService(mocks.NewMockStore(), nil, 0, zap.NewNop())

	_, err := svc.AddItem(context.Background(), "u1", "", 1)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	_, err = svc.AddItem(context.Background(), "u1", "p1", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(context.Background(), "u1", "p1", -3)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

// Integration test against a real Redis. Skipped unless REDIS_TEST_ADDR is
// set, e.g. REDIS_TEST_ADDR=localhost:6379 go test ./internal/storefront/
func TestCartLifecycle(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})

	ctx := context.Background()
	st := mocks.NewMockStore()
	require.NoError(t, st.CreateProduct(ctx, &model.Product{
		ID: "p1", Code: "W", Name: "Widget", OpeningStock: 5, AvailableQty: 5,
	}))
	svc := NewService(st, rdb, 0, zap.NewNop())

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	cart, err = svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "Widget", cart.Items[0].Name)

	// Merging lines respects availability.
	cart, err = svc.AddItem(ctx, "u1", "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	_, err = svc.AddItem(ctx, "u1", "p1", 1)
	assert.ErrorIs(t, err, ErrUnavailable)

	cart, err = svc.RemoveItem(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	require.NoError(t, svc.ClearCart(ctx, "u1"))

	wl, err := svc.AddToWishlist(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, wl.ProductIDs)

	// Duplicate add is a no-op.
	wl, err = svc.AddToWishlist(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Len(t, wl.ProductIDs, 1)

	wl, err = svc.RemoveFromWishlist(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Empty(t, wl.ProductIDs)
}
