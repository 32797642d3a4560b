package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/shelfstock/internal/adminfn"
	"github.com/example/shelfstock/internal/auth"
	"github.com/example/shelfstock/internal/email"
	"github.com/example/shelfstock/internal/event"
	"github.com/example/shelfstock/internal/model"
	"github.com/example/shelfstock/internal/store"
	"go.uber.org/zap"
)

// Handler turns stock events into notification center entries, alert mail,
// and audit records. It is driven by the Kafka consumer in cmd/notifier and
// by the Lambda entry point.
type Handler struct {
	store store.Store
	email *email.Service  // optional
	audit *adminfn.Client // optional
	log   *zap.Logger
}

func NewHandler(st store.Store, mail *email.Service, audit *adminfn.Client, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: st, email: mail, audit: audit, log: log}
}

// HandleEvent processes one event envelope off the stream. Unknown event
// types are acknowledged and dropped so a new producer version never wedges
// the consumer group.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var env event.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		h.log.Error("failed to decode event envelope", zap.Error(err))
		return err
	}

	switch env.EventType {
	case event.TypeMovementRecorded:
		return h.handleMovementRecorded(ctx, env)
	case event.TypeLowStockDetected:
		return h.handleLowStockDetected(ctx, env)
	default:
		h.log.Debug("ignoring event", zap.String("event_type", env.EventType))
		return nil
	}
}

func (h *Handler) handleMovementRecorded(ctx context.Context, env event.Envelope) error {
	var e event.MovementRecorded
	if err := json.Unmarshal(env.Data, &e); err != nil {
		h.log.Error("failed to decode movement event", zap.String("event_id", env.ID), zap.Error(err))
		return err
	}
	m := e.Movement

	name := e.ProductName
	if name == "" {
		if p, err := h.store.GetProduct(ctx, m.ProductID); err == nil {
			name = p.Name
		} else {
			name = m.ProductID
		}
	}

	verb := "received"
	if m.Type == model.MovementOut {
		verb = "dispatched"
	}
	n := &model.Notification{
		Kind:    model.NotificationMovement,
		Title:   fmt.Sprintf("Stock %s: %s", verb, name),
		Message: movementSummary(name, m),
	}
	if err := h.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("create movement notification: %w", err)
	}

	if h.audit != nil {
		entry := adminfn.AuditEntry{
			Action:  "stock_movement." + string(m.Type),
			ActorID: m.CreatedBy,
			Subject: m.ProductID,
			Detail:  movementSummary(name, m),
		}
		if err := h.audit.RecordAudit(ctx, entry); err != nil {
			h.log.Warn("audit record failed", zap.String("movement_id", m.ID), zap.Error(err))
		}
	}

	h.log.Info("movement notification stored",
		zap.String("movement_id", m.ID),
		zap.String("product_id", m.ProductID))
	return nil
}

func (h *Handler) handleLowStockDetected(ctx context.Context, env event.Envelope) error {
	var e event.LowStockDetected
	if err := json.Unmarshal(env.Data, &e); err != nil {
		h.log.Error("failed to decode low stock event", zap.String("event_id", env.ID), zap.Error(err))
		return err
	}

	n := &model.Notification{
		Kind:  model.NotificationLowStock,
		Title: fmt.Sprintf("Low stock: %s", e.ProductName),
		Message: fmt.Sprintf("%s (%s) is down to %d unit(s), below the minimum of %d.",
			e.ProductName, e.ProductCode, e.AvailableQty, e.MinStock),
	}
	if err := h.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("create low stock notification: %w", err)
	}

	if h.email != nil {
		h.mailManagers(ctx, e)
	}
	return nil
}

// mailManagers sends the alert to every active manager. A delivery failure
// is logged per recipient; the notification row already landed, so the event
// is not retried for mail alone.
func (h *Handler) mailManagers(ctx context.Context, e event.LowStockDetected) {
	managers, err := h.store.ListUsersByRole(ctx, auth.RoleManager)
	if err != nil {
		h.log.Error("failed to list managers for low stock mail", zap.Error(err))
		return
	}
	alert := email.LowStockAlert{
		ProductCode:  e.ProductCode,
		ProductName:  e.ProductName,
		AvailableQty: e.AvailableQty,
		MinStock:     e.MinStock,
	}
	if p, err := h.store.GetProduct(ctx, e.ProductID); err == nil {
		alert.Location = p.Location
	}
	for _, m := range managers {
		if err := h.email.SendLowStockAlert(m.Email, alert); err != nil {
			h.log.Warn("low stock mail failed",
				zap.String("recipient", m.Email),
				zap.String("product_id", e.ProductID),
				zap.Error(err))
		}
	}
}

func movementSummary(productName string, m model.StockMovement) string {
	dir := "in"
	if m.Type == model.MovementOut {
		dir = "out"
	}
	msg := fmt.Sprintf("%d unit(s) of %s moved %s", m.Quantity, productName, dir)
	if m.SetQuantity > 0 {
		msg = fmt.Sprintf("%d unit(s) and %d set(s) of %s moved %s", m.Quantity, m.SetQuantity, productName, dir)
	}
	if m.ShelfName != "" {
		msg += " at " + m.ShelfName
	}
	if m.HandledBy != "" {
		msg += " by " + m.HandledBy
	}
	return msg + "."
}
