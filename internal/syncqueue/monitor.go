package syncqueue

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/example/shelfstock/internal/movement"
	"go.uber.org/zap"
)

// Prober answers whether the backing store is currently reachable. The agent
// pings its database connection; tests plug in a stub.
type Prober interface {
	Probe(ctx context.Context) bool
}

// ProbeFunc adapts a function to the Prober interface.
type ProbeFunc func(ctx context.Context) bool

func (f ProbeFunc) Probe(ctx context.Context) bool { return f(ctx) }

// Monitor polls connectivity and drives the syncer. It fires a sync pass on
// every offline-to-online transition, and once at startup when the process
// comes up online with queued work. Its Online answer feeds the movement
// service's connectivity branching, so a movement created during an outage
// goes straight to the queue.
type Monitor struct {
	prober   Prober
	syncer   *Syncer
	notices  movement.Notifier
	log      *zap.Logger
	interval time.Duration
	online   atomic.Bool
}

func NewMonitor(prober Prober, syncer *Syncer, notices movement.Notifier, interval time.Duration, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{prober: prober, syncer: syncer, notices: notices, log: log, interval: interval}
}

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool { return m.online.Load() }

// Run polls until ctx is cancelled. It blocks; callers run it in a goroutine.
func (m *Monitor) Run(ctx context.Context) {
	m.online.Store(m.prober.Probe(ctx))
	if m.online.Load() && m.syncer != nil && m.syncer.queue.Len() > 0 {
		if _, err := m.syncer.SyncAll(ctx, m.notices); err != nil {
			m.log.Error("startup sync failed", zap.Error(err))
		}
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			was := m.online.Load()
			now := m.prober.Probe(ctx)
			m.online.Store(now)
			switch {
			case !was && now:
				m.log.Info("connectivity restored, draining offline queue")
				if m.syncer != nil {
					if _, err := m.syncer.SyncAll(ctx, m.notices); err != nil {
						m.log.Error("reconnect sync failed", zap.Error(err))
					}
				}
			case was && !now:
				m.log.Warn("connectivity lost, movements will queue locally")
			}
		}
	}
}
