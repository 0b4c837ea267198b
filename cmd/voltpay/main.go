package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appoutbox "voltpay/internal/app/outbox"
	"voltpay/internal/app/payments"
	"voltpay/internal/infra/broker/kafka"
	"voltpay/internal/infra/config"
	mongodb "voltpay/internal/infra/db/mongo"
	stripegw "voltpay/internal/infra/gateway/stripe"
	ginserver "voltpay/internal/infra/http/gin"
	"voltpay/internal/infra/obs"
	infraoutbox "voltpay/internal/infra/outbox"
	"voltpay/internal/infra/profiles"
	"voltpay/internal/infra/storage/memory"
	"voltpay/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback in-memory configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		runInMemory(ctx, cfg, logger)
		return
	}

	db, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connect failed", "error", err)
		os.Exit(1)
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		logger.Error("kafka producer init failed", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	receipts, err := s3.NewReceiptArchive(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, logger)
	if err != nil {
		logger.Error("receipt archive init failed", "error", err)
		os.Exit(1)
	}

	sessions := mongodb.NewSessionRepository(db.DB)
	outboxStore := infraoutbox.NewStore(db.DB)
	service := &payments.Service{
		Gateway:  stripegw.New(cfg.StripeAPIKey),
		Profiles: &profiles.Client{
			HTTP:    &http.Client{Timeout: cfg.ProfileHTTPTimeout},
			BaseURL: cfg.ProfileServiceURL,
			Logger:  logger,
		},
		Sessions:    sessions,
		Idempotency: mongodb.NewIdempotencyStore(db.DB, cfg.IdempotencyTTL),
		Outbox:      outboxStore,
		Encoder:     appoutbox.JSONEventEncoder{},
		Receipts:    receipts,
		Defaults: payments.HoldDefaults{
			AmountMajor: cfg.DefaultHoldMajor,
			Currency:    cfg.DefaultCurrency,
		},
		Logger: logger,
	}

	worker := &infraoutbox.Worker{
		Store:       outboxStore,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
	}
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()
	go runReconciler(ctx, service, cfg.ReconcileInterval, cfg.ReconcileBatch, logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: func() error { return db.Ping(context.Background()) },
	}, ginserver.Handlers{
		Payments: ginserver.PaymentHandler{Service: service, Logger: logger},
		Sessions: ginserver.SessionHandler{Sessions: sessions},
	})
	serve(ctx, server, logger)
}

// runInMemory keeps the service usable for local experiments when the real
// dependencies are not configured. Holds go through the in-memory gateway and
// nothing leaves the process.
func runInMemory(ctx context.Context, cfg config.Config, logger *slog.Logger) {
	sessions := memory.NewSessionRepository()
	service := &payments.Service{
		Gateway:     memory.NewGateway(),
		Profiles:    memory.NewProfileDirectory(),
		Sessions:    sessions,
		Idempotency: memory.NewIdempotencyStore(),
		Outbox:      memory.NewOutbox(),
		Encoder:     appoutbox.JSONEventEncoder{},
		Defaults: payments.HoldDefaults{
			AmountMajor: 50,
			Currency:    "EUR",
		},
		Logger: logger,
	}
	go runReconciler(ctx, service, 30*time.Second, 100, logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: func() error { return nil },
	}, ginserver.Handlers{
		Payments: ginserver.PaymentHandler{Service: service, Logger: logger},
		Sessions: ginserver.SessionHandler{Sessions: sessions},
	})
	serve(ctx, server, logger)
}

func runReconciler(ctx context.Context, service *payments.Service, interval time.Duration, batch int, logger *slog.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := service.ReconcilePendingHolds(ctx, batch)
			if err != nil {
				logger.Warn("pending hold reconciliation failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("pending holds reconciled", "count", n)
			}
		}
	}
}

func serve(ctx context.Context, server *http.Server, logger *slog.Logger) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
