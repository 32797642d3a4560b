package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/shelfstock/internal/adminfn"
	"github.com/example/shelfstock/internal/config"
	"github.com/example/shelfstock/internal/email"
	"github.com/example/shelfstock/internal/infrastructure/kinesis"
	"github.com/example/shelfstock/internal/logger"
	"github.com/example/shelfstock/internal/notification"
	"github.com/example/shelfstock/internal/store"
	"go.uber.org/zap"
)

var (
	log                 *zap.Logger
	notificationHandler *notification.Handler
)

func init() {
	log = logger.Must(logger.New()).Named("lambda-notifier")

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("configuration error", zap.Error(err))
	}

	db, err := store.ConnectPostgres(cfg.Database.URL)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}

	st := store.NewPostgresStore(db)
	emailSvc := email.NewService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From)

	var audit *adminfn.Client
	if cfg.AdminFn.BaseURL != "" {
		audit = adminfn.NewClient(cfg.AdminFn.BaseURL, cfg.AdminFn.APIKey)
	}

	notificationHandler = notification.NewHandler(st, emailSvc, audit, log.Named("handler"))

	log.Info("initialized", zap.String("smtp", cfg.SMTP.Host+":"+cfg.SMTP.Port))
}

// handler fans Kinesis records into the notification handler. Records that
// fail conversion or processing are reported back so the stream retries only
// the failed items.
func handler(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	log.Info("received records", zap.Int("count", len(kinesisEvent.Records)))

	var batchItemFailures []events.KinesisBatchItemFailure

	for _, record := range kinesisEvent.Records {
		env, err := kinesis.ConvertFromKinesisRecord(record)
		if err != nil {
			log.Error("failed to convert record",
				zap.String("event_id", record.EventID), zap.Error(err))
			batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
				ItemIdentifier: record.Kinesis.SequenceNumber,
			})
			continue
		}

		// Non-insert stream records carry no new movement.
		if env == nil {
			continue
		}

		payload, err := json.Marshal(env)
		if err != nil {
			log.Error("failed to marshal envelope",
				zap.String("envelope_id", env.ID), zap.Error(err))
			batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
				ItemIdentifier: record.Kinesis.SequenceNumber,
			})
			continue
		}

		if err := notificationHandler.HandleEvent(ctx, []byte(env.ProductID), payload); err != nil {
			log.Error("failed to process envelope",
				zap.String("envelope_id", env.ID), zap.Error(err))
			batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
				ItemIdentifier: record.Kinesis.SequenceNumber,
			})
			continue
		}
	}

	log.Info("processed records",
		zap.Int("ok", len(kinesisEvent.Records)-len(batchItemFailures)),
		zap.Int("failed", len(batchItemFailures)))

	return events.KinesisEventResponse{
		BatchItemFailures: batchItemFailures,
	}, nil
}

func main() {
	lambda.Start(handler)
}
