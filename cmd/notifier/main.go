package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/shelfstock/internal/adminfn"
	"github.com/example/shelfstock/internal/config"
	"github.com/example/shelfstock/internal/email"
	"github.com/example/shelfstock/internal/infrastructure/kafka"
	"github.com/example/shelfstock/internal/logger"
	"github.com/example/shelfstock/internal/notification"
	"github.com/example/shelfstock/internal/store"
	"go.uber.org/zap"
)

func main() {
	log := logger.Must(logger.New()).Named("notifier")
	defer log.Sync()

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal("configuration error", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.ConnectPostgres(cfg.Database.URL)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()
	log.Info("connected to postgres")

	st := store.NewPostgresStore(db)
	emailSvc := email.NewService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From)

	var audit *adminfn.Client
	if cfg.AdminFn.BaseURL != "" {
		audit = adminfn.NewClient(cfg.AdminFn.BaseURL, cfg.AdminFn.APIKey)
		log.Info("audit trail enabled", zap.String("endpoint", cfg.AdminFn.BaseURL))
	}

	handler := notification.NewHandler(st, emailSvc, audit, log.Named("handler"))

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, log.Named("kafka"))
	defer consumer.Close()

	go func() {
		log.Info("consuming stock events",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
			zap.String("group", cfg.Kafka.GroupID))
		if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
			log.Error("consumer stopped", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	cancel()
}
