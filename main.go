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

	"github.com/msomdec/task-manager/internal/config"
	"github.com/msomdec/task-manager/internal/domain"
	"github.com/msomdec/task-manager/internal/handler"
	"github.com/msomdec/task-manager/internal/notify"
	"github.com/msomdec/task-manager/internal/repository/s3store"
	"github.com/msomdec/task-manager/internal/repository/sqlstore"
	"github.com/msomdec/task-manager/internal/service"
	"github.com/msomdec/task-manager/internal/telemetry"
)

const serviceName = "task-manager"

func main() {
	logOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Error("tracing shutdown error", "error", err)
		}
	}()

	db, err := sqlstore.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied", "driver", cfg.DatabaseDriver)

	files, err := newFileStore(ctx, cfg, db)
	if err != nil {
		slog.Error("failed to set up avatar storage", "error", err)
		os.Exit(1)
	}

	dispatcher := notify.NewDispatcher(newMailer(cfg), notify.Options{
		Workers:     cfg.MailWorkers,
		QueueSize:   cfg.MailQueueSize,
		MaxAttempts: cfg.MailMaxAttempts,
	})

	limiter := service.NewTokenBucket(cfg.RateLimitPerSecond(), float64(cfg.RateLimitBurst))
	defer limiter.Stop()

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Services{
		Auth:    service.NewAuthService(db.Users(), dispatcher, cfg.JWTSecret, cfg.BcryptCost, cfg.TokenTTL),
		Users:   service.NewUserService(db.Users(), db.Tasks(), files, dispatcher, cfg.BcryptCost),
		Tasks:   service.NewTaskService(db.Tasks()),
		Avatars: service.NewAvatarService(db.Users(), files),
		Limiter: limiter,
		DB:      db,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Wrap(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		slog.Error("server error", "error", err)
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		slog.Warn("mail queue not drained", "error", err)
	}
	slog.Info("server stopped")
}

// newFileStore keeps avatars in S3 when a bucket is configured and in the
// database otherwise.
func newFileStore(ctx context.Context, cfg *config.Config, db *sqlstore.DB) (domain.FileStore, error) {
	if cfg.S3.Bucket == "" {
		return db.FileStore(), nil
	}
	slog.Info("storing avatars in S3", "bucket", cfg.S3.Bucket)
	store, err := s3store.New(ctx, s3store.Config{
		Bucket:    cfg.S3.Bucket,
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newMailer(cfg *config.Config) notify.Mailer {
	if cfg.SendGridAPIKey == "" {
		slog.Info("SENDGRID_API_KEY not set, emails will only be logged")
		return notify.LogMailer{}
	}
	return notify.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom)
}
