package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tienda-be/internal/admin"
	"tienda-be/internal/blob"
	"tienda-be/internal/config"
	"tienda-be/internal/db"
	"tienda-be/internal/httpapi"
	"tienda-be/internal/logger"
	"tienda-be/internal/metrics"
	"tienda-be/internal/middleware"
	"tienda-be/internal/order"
	"tienda-be/internal/product"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

// Swapped out in tests.
var (
	initDBFunc      = db.InitDB
	migrateFunc     = db.Migrate
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database := initDBFunc(cfg)
	defer database.Close()

	if err := migrateFunc(database, cfg.DBDriver); err != nil {
		return err
	}

	handler, err := newServer(ctx, cfg, database)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- startServerFunc(srv) }()
	logger.L().Info("server listening",
		zap.String("addr", srv.Addr),
		zap.String("db_driver", cfg.DBDriver),
		zap.String("session_store", cfg.SessionStore),
	)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newServer wires the stores and services behind the HTTP handler.
// Background work (session sweeping, limiter cleanup, credential
// reloading) stops with ctx.
func newServer(ctx context.Context, cfg *config.Config, database *sql.DB) (http.Handler, error) {
	sessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	creds, err := newCredentialProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	blobs, err := blob.NewDiskStore(afero.NewOsFs(), cfg.UploadsDir, cfg.UploadsPrefix)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	limiter := middleware.NewLimiter()
	go limiter.Run(ctx, sweepInterval)

	api := httpapi.New(
		product.NewService(product.NewRepository(database)),
		order.NewService(order.NewRepository(database)),
		admin.NewGate(creds, sessions, cfg.SessionTTL),
		blobs,
		m,
		limiter,
		httpapi.Options{
			EnforceAdmin:    cfg.AdminEnforceCatalog,
			SecureCookies:   cfg.SessionCookieSecure,
			MaxUploadMemory: cfg.MaxUploadMemory,
			StaticDir:       cfg.StaticDir,
		},
	)

	return setupRouter(api, m, cfg.CORSOrigins), nil
}

func newSessionStore(ctx context.Context, cfg *config.Config) (admin.SessionStore, error) {
	if cfg.SessionStore == config.SessionStoreRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, err
		}
		return admin.NewRedisStore(client, ""), nil
	}

	store := admin.NewMemoryStore()
	go store.RunSweeper(ctx, sweepInterval)
	return store, nil
}

func newCredentialProvider(ctx context.Context, cfg *config.Config) (admin.CredentialProvider, error) {
	if cfg.AdminCredentialsFile == "" {
		return admin.NewStaticProvider(cfg.AdminUsers)
	}

	p, err := admin.NewFileProvider(cfg.AdminCredentialsFile)
	if err != nil {
		return nil, err
	}
	if err := p.Watch(ctx); err != nil {
		logger.L().Warn("credentials file will not be reloaded", zap.Error(err))
	}
	return p, nil
}

func setupRouter(api *httpapi.API, m *metrics.Metrics, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(middleware.Recover)
	r.Use(m.Middleware)
	r.Use(middleware.CORS(corsOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", m.Handler())

	r.Mount("/", api.Routes())

	return r
}
