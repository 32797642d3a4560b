package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/example/shelfstock/internal/movement"
	"github.com/google/uuid"
)

// ActionStockMovement is the only action kind currently queued. The tag is
// persisted so the payload format can grow without breaking old queue files.
const ActionStockMovement = "stock_movement"

var ErrActionNotFound = errors.New("queued action not found")

// Action is one locally persisted pending operation.
type Action struct {
	ID        string                       `json:"id"`
	Kind      string                       `json:"kind"`
	Movement  movement.CreateMovementInput `json:"movement"`
	CreatedAt time.Time                    `json:"created_at"`
	Retries   int                          `json:"retries"`
}

// Queue is a durable FIFO of actions created while disconnected. Every
// mutation is flushed to disk before it is acknowledged, so queued work
// survives a process restart. Rows are appended on creation and removed only
// on confirmed remote success.
type Queue struct {
	mu      sync.Mutex
	path    string
	actions []Action
}

// Open loads the queue file at path, creating an empty queue if the file
// does not exist yet.
func Open(path string) (*Queue, error) {
	q := &Queue{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue file: %w", err)
	}
	if len(data) == 0 {
		return q, nil
	}
	if err := json.Unmarshal(data, &q.actions); err != nil {
		return nil, fmt.Errorf("decode queue file %s: %w", path, err)
	}
	return q, nil
}

// Enqueue appends a pending movement and persists the queue. It satisfies
// the movement service's offline queue dependency.
func (q *Queue) Enqueue(_ context.Context, in movement.CreateMovementInput) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.actions = append(q.actions, Action{
		ID:        uuid.New().String(),
		Kind:      ActionStockMovement,
		Movement:  in,
		CreatedAt: time.Now(),
	})
	if err := q.persistLocked(); err != nil {
		q.actions = q.actions[:len(q.actions)-1]
		return err
	}
	return nil
}

// Dequeue removes the action with the given id. Called only after a
// confirmed remote success.
func (q *Queue) Dequeue(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, a := range q.actions {
		if a.ID == id {
			q.actions = append(q.actions[:i], q.actions[i+1:]...)
			return q.persistLocked()
		}
	}
	return ErrActionNotFound
}

// BumpRetry increments the retry counter of a still-queued action. The
// counter is persisted for a future backoff policy; nothing currently evicts
// on it.
func (q *Queue) BumpRetry(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.actions {
		if q.actions[i].ID == id {
			q.actions[i].Retries++
			return q.persistLocked()
		}
	}
	return ErrActionNotFound
}

// List returns the queued actions in FIFO order.
func (q *Queue) List() []Action {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Action, len(q.actions))
	copy(out, q.actions)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// persistLocked writes the whole queue through a temp file and rename so a
// crash mid-write never truncates the previous state.
func (q *Queue) persistLocked() error {
	data, err := json.MarshalIndent(q.actions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	dir := filepath.Dir(q.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".queue-*")
	if err != nil {
		return fmt.Errorf("create temp queue file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write queue: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close queue file: %w", err)
	}
	if err := os.Rename(tmp.Name(), q.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}
