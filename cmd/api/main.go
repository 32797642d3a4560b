package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/example/shelfstock/internal/api"
	"github.com/example/shelfstock/internal/auth"
	"github.com/example/shelfstock/internal/cache"
	"github.com/example/shelfstock/internal/config"
	"github.com/example/shelfstock/internal/infrastructure/kafka"
	"github.com/example/shelfstock/internal/logger"
	"github.com/example/shelfstock/internal/model"
	"github.com/example/shelfstock/internal/movement"
	"github.com/example/shelfstock/internal/scheduler"
	"github.com/example/shelfstock/internal/store"
	"github.com/example/shelfstock/internal/storefront"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	log := logger.Must(logger.New()).Named("api")
	defer log.Sync()

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal("configuration error", zap.Error(err))
	}
	if err := cfg.Auth.Validate(); err != nil {
		log.Fatal("configuration error", zap.Error(err))
	}

	db, err := store.ConnectPostgres(cfg.Database.URL)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()
	log.Info("connected to postgres")

	var st store.Store = store.NewPostgresStore(db)

	if cfg.Dynamo.LedgerTable != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Fatal("failed to load aws config", zap.Error(err))
		}
		ledger := store.NewDynamoLedger(dynamodb.NewFromConfig(awsCfg), cfg.Dynamo.LedgerTable)
		st = store.NewLedgerMirror(st, ledger, log.Named("dynamo"))
		log.Info("dynamo ledger mirror enabled", zap.String("table", cfg.Dynamo.LedgerTable))
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		st = cache.NewCachedStore(st, rdb, time.Minute, log.Named("cache"))
		defer rdb.Close()
		log.Info("product cache enabled", zap.String("redis", cfg.Redis.Addr))
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	roles, err := auth.LoadRoleMap(cfg.Auth.RolesFile)
	if err != nil {
		log.Fatal("failed to load role map", zap.Error(err))
	}
	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, 15*time.Minute, 7*24*time.Hour)

	if err := bootstrapAdmin(context.Background(), st, cfg.Auth); err != nil {
		log.Fatal("failed to seed bootstrap admin", zap.Error(err))
	}

	movementSvc := movement.NewService(st, movement.AlwaysOnline{}, nil, producer, log.Named("movement"))

	var sf *storefront.Service
	if rdb != nil {
		sf = storefront.NewService(st, rdb, 0, log.Named("storefront"))
	}

	// Periodic low stock scan feeding the notifier through Kafka.
	sched := scheduler.New(st, producer, cfg.Scheduler.LowStockCron, log.Named("scheduler"))
	if err := sched.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	handlers := api.NewHandlers(st, movementSvc, nil, sf, log.Named("http"))
	authHandlers := api.NewAuthHandlers(st, jwtService)
	router := api.NewRouter(api.RouterDeps{
		Handlers:     handlers,
		AuthHandlers: authHandlers,
		JWT:          jwtService,
		Roles:        roles,
		Logger:       log.Named("http"),
	})

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("server started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}

// bootstrapAdmin seeds the configured admin account on a fresh install.
// Registration is invite-only, so without this there is no way to mint the
// first session.
func bootstrapAdmin(ctx context.Context, st store.Store, cfg config.AuthConfig) error {
	if cfg.BootstrapEmail == "" || cfg.BootstrapPassword == "" {
		return nil
	}
	if _, err := st.GetUserByEmail(ctx, cfg.BootstrapEmail); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(cfg.BootstrapPassword)
	if err != nil {
		return err
	}
	return st.CreateUser(ctx, &model.User{
		Email:        cfg.BootstrapEmail,
		PasswordHash: hash,
		Name:         cfg.BootstrapName,
		Role:         auth.RoleAdmin,
		IsActive:     true,
	})
}
