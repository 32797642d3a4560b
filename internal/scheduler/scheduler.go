package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/example/shelfstock/internal/event"
	"github.com/example/shelfstock/internal/movement"
	"github.com/example/shelfstock/internal/store"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs periodic maintenance jobs. Currently a single job: the low
// stock scan, which sweeps all products and publishes a LowStockDetected
// event for each one sitting below its threshold.
type Scheduler struct {
	cron     *cron.Cron
	store    store.ProductStore
	pub      movement.Publisher
	log      *zap.Logger
	lowSpec  string
	lastSeen map[string]bool // product id -> was low on previous scan
}

func New(st store.ProductStore, pub movement.Publisher, lowStockSpec string, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if lowStockSpec == "" {
		lowStockSpec = "0 * * * *" // hourly
	}
	return &Scheduler{
		cron:     cron.New(),
		store:    st,
		pub:      pub,
		log:      log,
		lowSpec:  lowStockSpec,
		lastSeen: make(map[string]bool),
	}
}

// Start registers the jobs and begins the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.lowSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.ScanLowStock(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.String("low_stock_cron", s.lowSpec))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// ScanLowStock publishes one LowStockDetected per product newly observed
// below its threshold. A product alerts again only after recovering above
// the threshold first, so a stuck product does not spam a notification per
// scan.
func (s *Scheduler) ScanLowStock(ctx context.Context) int {
	products, err := s.store.ListProducts(ctx, false)
	if err != nil {
		s.log.Error("low stock scan failed to list products", zap.Error(err))
		return 0
	}

	published := 0
	for i := range products {
		p := &products[i]
		low := p.IsLowStock()
		wasLow := s.lastSeen[p.ID]
		s.lastSeen[p.ID] = low
		if !low || wasLow {
			continue
		}

		payload := event.LowStockDetected{
			ProductID:    p.ID,
			ProductCode:  p.Code,
			ProductName:  p.Name,
			AvailableQty: p.AvailableQty,
			MinStock:     p.MinStock,
			DetectedAt:   time.Now(),
		}
		data, err := json.Marshal(payload)
		if err != nil {
			s.log.Error("failed to encode low stock event", zap.Error(err))
			continue
		}
		env := event.Envelope{
			ID:        uuid.New().String(),
			ProductID: p.ID,
			EventType: event.TypeLowStockDetected,
			Data:      data,
			Timestamp: time.Now(),
		}
		if err := s.pub.Publish(ctx, p.ID, env); err != nil {
			s.log.Error("failed to publish low stock event",
				zap.String("product_id", p.ID), zap.Error(err))
			// Forget the observation so the next scan retries the alert.
			s.lastSeen[p.ID] = false
			continue
		}
		published++
	}

	if published > 0 {
		s.log.Info("low stock scan complete", zap.Int("alerts", published))
	}
	return published
}
