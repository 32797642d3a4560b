package movement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/shelfstock/internal/auth"
	"github.com/example/shelfstock/internal/event"
	"github.com/example/shelfstock/internal/model"
	"github.com/example/shelfstock/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotAuthenticated  = errors.New("no active session")
	ErrProfileMissing    = errors.New("user profile not found")
	ErrInvalidType       = errors.New("movement type must be in or out")
	ErrInvalidQuantity   = errors.New("quantities must not be negative")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrPersistenceFailure wraps a rejected or failed ledger write. Actions
	// that hit it are never re-queued automatically; the user must resubmit
	// deliberately.
	ErrPersistenceFailure = errors.New("failed to persist movement")
)

// CreateMovementInput is the single shape a stock movement is created from,
// both online and through the offline queue.
type CreateMovementInput struct {
	ProductID   string             `json:"product_id"`
	Type        model.MovementType `json:"movement_type"`
	Quantity    int                `json:"quantity"`
	SetQuantity int                `json:"set_quantity"`
	Date        string             `json:"movement_date"` // YYYY-MM-DD
	Time        string             `json:"movement_time,omitempty"`
	Notes       string             `json:"notes,omitempty"`
	ShelfID     string             `json:"shelf_id,omitempty"`
}

func (in CreateMovementInput) validate() error {
	if !in.Type.Valid() {
		return ErrInvalidType
	}
	if in.Quantity < 0 || in.SetQuantity < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// Connectivity reports whether the backing store is reachable.
type Connectivity interface {
	Online() bool
}

// AlwaysOnline is the Connectivity used by the API server, which fronts the
// store directly.
type AlwaysOnline struct{}

func (AlwaysOnline) Online() bool { return true }

// Queue is the offline holding area the service hands actions to when
// disconnected.
type Queue interface {
	Enqueue(ctx context.Context, in CreateMovementInput) error
}

// Publisher publishes stock events for audit and notification dispatch.
type Publisher interface {
	Publish(ctx context.Context, key string, e any) error
}

// Service is the single authoritative entry point for creating a stock
// movement. All creation paths (API handler, agent CLI, offline queue replay)
// funnel through it.
type Service struct {
	store store.Store
	conn  Connectivity
	queue Queue
	pub   Publisher // optional
	log   *zap.Logger
}

func NewService(st store.Store, conn Connectivity, queue Queue, pub Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if conn == nil {
		conn = AlwaysOnline{}
	}
	return &Service{store: st, conn: conn, queue: queue, pub: pub, log: log}
}

// Create validates and persists a movement. While offline the action is
// enqueued verbatim and a nil result is returned, signalling "not yet
// persisted"; callers must not patch local state on a nil result.
func (s *Service) Create(ctx context.Context, in CreateMovementInput, notices Notifier) (*model.EnrichedMovement, error) {
	if err := in.validate(); err != nil {
		notify(notices, NoticeError, err.Error())
		return nil, err
	}

	if !s.conn.Online() {
		if s.queue == nil {
			return nil, fmt.Errorf("offline and no sync queue configured")
		}
		if err := s.queue.Enqueue(ctx, in); err != nil {
			notify(notices, NoticeError, "Could not save the movement for later sync.")
			return nil, err
		}
		notify(notices, NoticeInfo, "You are offline. The movement was saved and will sync once you reconnect.")
		return nil, nil
	}

	return s.Submit(ctx, in, notices)
}

// Submit runs the online path unconditionally. The sync queue calls it
// directly when replaying queued actions.
func (s *Service) Submit(ctx context.Context, in CreateMovementInput, notices Notifier) (*model.EnrichedMovement, error) {
	if err := in.validate(); err != nil {
		notify(notices, NoticeError, err.Error())
		return nil, err
	}

	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		notify(notices, NoticeError, "You must be signed in to record a stock movement.")
		return nil, ErrNotAuthenticated
	}

	profile, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil || !profile.IsActive {
		notify(notices, NoticeError, "Your user profile could not be loaded.")
		if err != nil {
			s.log.Error("profile lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		}
		return nil, ErrProfileMissing
	}

	// Fast-fail guard against the latest read. The store's own conditional
	// update remains the authoritative check; a concurrent stock-out can
	// still win the race and get this submission rejected below.
	if in.Type == model.MovementOut {
		p, err := s.store.GetProduct(ctx, in.ProductID)
		if err != nil {
			notify(notices, NoticeError, "Product could not be loaded.")
			return nil, fmt.Errorf("load product: %w", err)
		}
		if in.Quantity > p.AvailableQty || in.SetQuantity > p.AvailableSets {
			notify(notices, NoticeError, fmt.Sprintf(
				"Not enough stock for %s: %d unit(s) and %d set(s) available.",
				p.Name, p.AvailableQty, p.AvailableSets))
			return nil, ErrInsufficientStock
		}
	}

	var shelf *model.Shelf
	if in.ShelfID != "" {
		shelf, err = s.store.GetShelf(ctx, in.ShelfID)
		if err != nil {
			// Movement still goes through; it just loses the name snapshot.
			s.log.Warn("shelf lookup failed", zap.String("shelf_id", in.ShelfID), zap.Error(err))
			shelf = nil
		}
	}

	m := &model.StockMovement{
		ID:           uuid.New().String(),
		ProductID:    in.ProductID,
		Type:         in.Type,
		Quantity:     in.Quantity,
		SetQuantity:  in.SetQuantity,
		MovementDate: in.Date,
		MovementTime: in.Time,
		Notes:        in.Notes,
		ShelfID:      in.ShelfID,
		HandledBy:    profile.Name,
		CreatedBy:    profile.ID,
	}
	if shelf != nil {
		m.ShelfName = shelf.Name
	}

	if err := s.store.InsertMovement(ctx, m); err != nil {
		if errors.Is(err, store.ErrStockConflict) {
			notify(notices, NoticeError, "The store rejected the movement: stock changed underneath you. Please refresh and try again.")
		} else {
			notify(notices, NoticeError, "Failed to record the stock movement.")
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	// Best-effort audit event; a publish failure never invalidates the write.
	s.publishRecorded(ctx, m)

	// Enrichment via read-after-write. A failed enrichment degrades the
	// result to locally known values, never discards the written movement.
	result, err := s.store.GetMovement(ctx, m.ID)
	if err != nil {
		s.log.Warn("movement enrichment failed, returning unenriched result",
			zap.String("movement_id", m.ID), zap.Error(err))
		result = &model.EnrichedMovement{StockMovement: *m}
	}

	// Stock-in to a named shelf drags the product's default location along.
	// Fire-and-forget relative to the movement result.
	if in.Type == model.MovementIn && shelf != nil {
		if err := s.store.UpdateProductLocation(ctx, m.ProductID, shelf.Name); err != nil {
			s.log.Warn("default shelf sync-back failed",
				zap.String("product_id", m.ProductID), zap.Error(err))
		}
	}

	notify(notices, NoticeSuccess, successMessage(m))
	return result, nil
}

func (s *Service) publishRecorded(ctx context.Context, m *model.StockMovement) {
	if s.pub == nil {
		return
	}
	payload := event.MovementRecorded{Movement: *m, RecordedAt: time.Now()}

	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to encode movement event", zap.Error(err))
		return
	}
	env := event.Envelope{
		ID:        uuid.New().String(),
		ProductID: m.ProductID,
		EventType: event.TypeMovementRecorded,
		Data:      data,
		Timestamp: time.Now(),
	}
	if err := s.pub.Publish(ctx, m.ProductID, env); err != nil {
		s.log.Warn("failed to publish movement event", zap.Error(err))
	}
}

func successMessage(m *model.StockMovement) string {
	verb := "Stock-in"
	if m.Type == model.MovementOut {
		verb = "Stock-out"
	}
	switch {
	case m.Quantity > 0 && m.SetQuantity > 0:
		return fmt.Sprintf("%s of %d unit(s) and %d set(s) recorded.", verb, m.Quantity, m.SetQuantity)
	case m.SetQuantity > 0:
		return fmt.Sprintf("%s of %d set(s) recorded.", verb, m.SetQuantity)
	default:
		return fmt.Sprintf("%s of %d unit(s) recorded.", verb, m.Quantity)
	}
}
