// Package event defines the stock event envelope published to Kafka and
// consumed by the notifier.
package event

import (
	"encoding/json"
	"time"

	"github.com/example/shelfstock/internal/model"
)

const (
	TypeMovementRecorded = "MovementRecorded"
	TypeLowStockDetected = "LowStockDetected"
)

// Envelope wraps a stock event for transport. ProductID doubles as the
// partition key so events for one product stay ordered.
type Envelope struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// MovementRecorded is emitted after a ledger row is successfully written.
type MovementRecorded struct {
	Movement    model.StockMovement `json:"movement"`
	ProductName string              `json:"product_name"`
	RecordedAt  time.Time           `json:"recorded_at"`
}

// LowStockDetected is emitted when a product's available units are observed
// below its minimum threshold.
type LowStockDetected struct {
	ProductID    string    `json:"product_id"`
	ProductCode  string    `json:"product_code"`
	ProductName  string    `json:"product_name"`
	AvailableQty int       `json:"available_qty"`
	MinStock     int       `json:"min_stock"`
	DetectedAt   time.Time `json:"detected_at"`
}
