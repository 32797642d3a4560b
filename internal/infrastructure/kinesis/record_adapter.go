// Package kinesis converts DynamoDB ledger stream records, delivered through
// Kinesis, into stock event envelopes for the Lambda notifier.
package kinesis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/shelfstock/internal/event"
	"github.com/example/shelfstock/internal/model"
)

// ConvertFromKinesisRecord converts a Kinesis record (DynamoDB Streams
// format) into a MovementRecorded envelope. The DynamoDB Kinesis integration
// wraps stream records in the Streams JSON shape.
func ConvertFromKinesisRecord(record events.KinesisEventRecord) (*event.Envelope, error) {
	var streamRecord events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &streamRecord); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}
	return ConvertFromDynamoDBStreamRecord(streamRecord)
}

// ConvertFromDynamoDBStreamRecord converts a DynamoDB Stream record into a
// MovementRecorded envelope. Only INSERTs matter: the ledger is append-only,
// so any other stream event is noise from backfills or TTL churn and is
// dropped (nil, nil).
func ConvertFromDynamoDBStreamRecord(record events.DynamoDBEventRecord) (*event.Envelope, error) {
	if record.EventName != "INSERT" {
		return nil, nil
	}
	return convertMovementImage(record.Change.NewImage)
}

func convertMovementImage(image map[string]events.DynamoDBAttributeValue) (*event.Envelope, error) {
	if image == nil {
		return nil, fmt.Errorf("DynamoDB image is nil")
	}

	m := model.StockMovement{}
	if v, ok := image["id"]; ok {
		m.ID = v.String()
	}
	if v, ok := image["product_id"]; ok {
		m.ProductID = v.String()
	}
	if v, ok := image["movement_type"]; ok {
		m.Type = model.MovementType(v.String())
	}
	if v, ok := image["quantity"]; ok {
		n, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("failed to parse quantity: %w", err)
		}
		m.Quantity = int(n)
	}
	if v, ok := image["set_quantity"]; ok {
		n, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("failed to parse set_quantity: %w", err)
		}
		m.SetQuantity = int(n)
	}
	if v, ok := image["movement_date"]; ok {
		m.MovementDate = v.String()
	}
	if v, ok := image["movement_time"]; ok {
		m.MovementTime = v.String()
	}
	if v, ok := image["notes"]; ok {
		m.Notes = v.String()
	}
	if v, ok := image["shelf_id"]; ok {
		m.ShelfID = v.String()
	}
	if v, ok := image["shelf_name"]; ok {
		m.ShelfName = v.String()
	}
	if v, ok := image["handled_by"]; ok {
		m.HandledBy = v.String()
	}
	if v, ok := image["created_by"]; ok {
		m.CreatedBy = v.String()
	}

	recordedAt := time.Now()
	if v, ok := image["created_at"]; ok {
		t, err := time.Parse(time.RFC3339Nano, v.String())
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		m.CreatedAt = t
		recordedAt = t
	}

	if m.ID == "" || m.ProductID == "" || !m.Type.Valid() {
		return nil, fmt.Errorf("missing required fields: id=%s, product_id=%s, movement_type=%s",
			m.ID, m.ProductID, m.Type)
	}

	data, err := json.Marshal(event.MovementRecorded{Movement: m, RecordedAt: recordedAt})
	if err != nil {
		return nil, fmt.Errorf("failed to encode movement event: %w", err)
	}
	return &event.Envelope{
		ID:        m.ID,
		ProductID: m.ProductID,
		EventType: event.TypeMovementRecorded,
		Data:      data,
		Timestamp: recordedAt,
	}, nil
}

// BatchConvertFromKinesisEvent converts all records from a Kinesis event.
// Returns successfully converted envelopes and any per-record errors.
func BatchConvertFromKinesisEvent(kinesisEvent events.KinesisEvent) ([]*event.Envelope, []error) {
	var envelopes []*event.Envelope
	var errs []error

	for _, record := range kinesisEvent.Records {
		env, err := ConvertFromKinesisRecord(record)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", record.EventID, err))
			continue
		}
		if env != nil {
			envelopes = append(envelopes, env)
		}
	}

	return envelopes, errs
}
