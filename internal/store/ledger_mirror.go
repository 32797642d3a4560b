package store

import (
	"context"

	"github.com/example/shelfstock/internal/model"
	"go.uber.org/zap"
)

// LedgerMirror decorates a Store so every accepted movement is also appended
// to the DynamoDB ledger. The mirror feeds the DynamoDB-to-Kinesis stream
// behind the lambda notifier, for deployments without a Kafka cluster. The
// relational store stays authoritative; a failed mirror write is logged and
// the movement stands.
type LedgerMirror struct {
	Store
	ledger *DynamoLedger
	log    *zap.Logger
}

func NewLedgerMirror(st Store, ledger *DynamoLedger, log *zap.Logger) *LedgerMirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &LedgerMirror{Store: st, ledger: ledger, log: log}
}

func (s *LedgerMirror) InsertMovement(ctx context.Context, m *model.StockMovement) error {
	if err := s.Store.InsertMovement(ctx, m); err != nil {
		return err
	}

	mirrored := *m
	if err := s.ledger.AppendMovement(ctx, &mirrored); err != nil {
		s.log.Warn("failed to mirror movement to dynamo ledger",
			zap.String("movement_id", m.ID), zap.Error(err))
	}
	return nil
}
