package syncqueue

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/shelfstock/internal/model"
	"github.com/example/shelfstock/internal/movement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInput(productID string, qty int) movement.CreateMovementInput {
	return movement.CreateMovementInput{
		ProductID: productID,
		Type:      model.MovementOut,
		Quantity:  qty,
		Date:      "2026-08-30",
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	ctx := context.Background()

	q, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, testInput("p1", 2)))
	require.NoError(t, q.Enqueue(ctx, testInput("p2", 5)))

	reopened, err := Open(path)
	require.NoError(t, err)
	actions := reopened.List()
	require.Len(t, actions, 2)
	assert.Equal(t, "p1", actions[0].Movement.ProductID)
	assert.Equal(t, "p2", actions[1].Movement.ProductID)
	assert.Equal(t, ActionStockMovement, actions[0].Kind)
	assert.NotEmpty(t, actions[0].ID)
	assert.Zero(t, actions[0].Retries)
}

func TestQueueOpenMissingFile(t *testing.T) {
	q, err := Open(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Zero(t, q.Len())
}

func TestQueueDequeueRemovesOnlyTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	ctx := context.Background()

	q, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, testInput("p1", 1)))
	require.NoError(t, q.Enqueue(ctx, testInput("p2", 1)))

	actions := q.List()
	require.NoError(t, q.Dequeue(actions[0].ID))

	remaining := q.List()
	require.Len(t, remaining, 1)
	assert.Equal(t, "p2", remaining[0].Movement.ProductID)

	assert.ErrorIs(t, q.Dequeue("missing"), ErrActionNotFound)
}

func TestQueueRetryCounterPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	ctx := context.Background()

	q, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, testInput("p1", 1)))
	id := q.List()[0].ID
	require.NoError(t, q.BumpRetry(id))
	require.NoError(t, q.BumpRetry(id))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.List()[0].Retries)
}
