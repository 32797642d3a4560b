package syncqueue

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/shelfstock/internal/model"
	"github.com/example/shelfstock/internal/movement"
	"go.uber.org/zap"
)

// Submitter is the online path of the stock movement service. The syncer
// calls it directly so that queued actions get the full validation and
// enrichment pipeline, not a second code path.
type Submitter interface {
	Submit(ctx context.Context, in movement.CreateMovementInput, notices movement.Notifier) (*model.EnrichedMovement, error)
}

// Syncer drains the offline queue with at-least-once semantics. Actions are
// replayed strictly in FIFO order and awaited one at a time, so two queued
// movements against the same product never race each other's counter update.
type Syncer struct {
	queue *Queue
	svc   Submitter
	conn  movement.Connectivity
	log   *zap.Logger

	mu       sync.Mutex
	inFlight bool
}

func NewSyncer(queue *Queue, svc Submitter, conn movement.Connectivity, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	if conn == nil {
		conn = movement.AlwaysOnline{}
	}
	return &Syncer{queue: queue, svc: svc, conn: conn, log: log}
}

// SyncAll replays every queued action. It is a no-op while offline or while
// another pass is already in flight. Successes are removed from the queue;
// failures stay put with their retry counter bumped, to be retried on the
// next pass. The caller gets one aggregate notice, never one per item, and
// no notice at all when there was nothing to sync.
func (s *Syncer) SyncAll(ctx context.Context, notices movement.Notifier) (int, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return 0, nil
	}
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	if !s.conn.Online() {
		return 0, nil
	}

	pending := s.queue.List()
	if len(pending) == 0 {
		return 0, nil
	}

	synced := 0
	for _, a := range pending {
		if err := ctx.Err(); err != nil {
			break
		}
		if a.Kind != ActionStockMovement {
			s.log.Warn("skipping unknown queued action kind",
				zap.String("action_id", a.ID), zap.String("kind", a.Kind))
			continue
		}
		// Per-item notices are suppressed; only the aggregate below is shown.
		if _, err := s.svc.Submit(ctx, a.Movement, nil); err != nil {
			s.log.Warn("queued movement failed to sync, leaving in place",
				zap.String("action_id", a.ID),
				zap.Int("retries", a.Retries+1),
				zap.Error(err))
			if rerr := s.queue.BumpRetry(a.ID); rerr != nil {
				s.log.Error("failed to bump retry counter", zap.String("action_id", a.ID), zap.Error(rerr))
			}
			continue
		}
		if err := s.queue.Dequeue(a.ID); err != nil {
			s.log.Error("failed to remove synced action", zap.String("action_id", a.ID), zap.Error(err))
			continue
		}
		synced++
	}

	if synced > 0 {
		msg := fmt.Sprintf("Synced %d pending stock movement(s).", synced)
		if remaining := s.queue.Len(); remaining > 0 {
			msg = fmt.Sprintf("Synced %d pending stock movement(s); %d still waiting to retry.", synced, remaining)
		}
		level := movement.NoticeSuccess
		if s.queue.Len() > 0 {
			level = movement.NoticeInfo
		}
		s.notify(notices, level, msg)
	} else if len(pending) > 0 {
		s.notify(notices, movement.NoticeError,
			fmt.Sprintf("Could not sync %d pending stock movement(s); they remain queued.", len(pending)))
	}
	return synced, nil
}

func (s *Syncer) notify(n movement.Notifier, level movement.NoticeLevel, msg string) {
	if n == nil {
		return
	}
	n.Notify(movement.Notice{Level: level, Message: msg})
}
