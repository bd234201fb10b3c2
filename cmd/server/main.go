package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	specpkg "github.com/princesspalace/palace/api"
	"github.com/princesspalace/palace/internal/accounts"
	"github.com/princesspalace/palace/internal/api"
	"github.com/princesspalace/palace/internal/api/handler"
	"github.com/princesspalace/palace/internal/booking"
	"github.com/princesspalace/palace/internal/clientid"
	"github.com/princesspalace/palace/internal/config"
	"github.com/princesspalace/palace/internal/database"
	"github.com/princesspalace/palace/internal/docstore"
	"github.com/princesspalace/palace/internal/errbus"
	"github.com/princesspalace/palace/internal/finance"
	"github.com/princesspalace/palace/internal/identity"
	"github.com/princesspalace/palace/internal/kv"
	"github.com/princesspalace/palace/internal/order"
	"github.com/princesspalace/palace/internal/review"
	"github.com/princesspalace/palace/internal/session"
)

const sessionTimeout = 5 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := db.MigrateUp(); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	store, closeStore, err := openStore(ctx, cfg, db)
	if err != nil {
		slog.Error("failed to open document store", "backend", cfg.DocstoreBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var storage kv.Storage = kv.NewMemoryStorage()
	var redisPinger handler.Pinger
	if cfg.RedisURL != "" {
		rs, err := kv.NewRedisStorage(cfg.RedisURL, cfg.ClientTokenTTL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rs.Close()
		storage = rs
		redisPinger = rs
	} else {
		slog.Warn("REDIS_URL not set; sessions are kept in memory")
	}

	accts, err := accounts.Load(cfg.AccountsFile)
	if err != nil {
		slog.Error("failed to load static accounts", "error", err)
		os.Exit(1)
	}

	idp, err := identity.NewProvider(identity.NewRepository(db.Pool()), cfg.BcryptCost)
	if err != nil {
		slog.Error("failed to create identity provider", "error", err)
		os.Exit(1)
	}

	resolver := session.NewResolver(accts, idp, store)
	manager := session.NewManager(resolver, idp, store, storage, cfg.TrackerIdleTTL)
	go manager.Start(ctx)

	issuer, err := clientid.NewIssuer(cfg.SessionSecret, cfg.ClientTokenTTL)
	if err != nil {
		slog.Error("failed to create client token issuer", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterDeps{
		DBPinger:       db,
		RedisPinger:    redisPinger,
		Backend:        cfg.DocstoreBackend,
		Version:        cfg.Version,
		OpenAPISpec:    specpkg.OpenAPISpec,
		Tokens:         issuer,
		CookieName:     cfg.ClientCookie,
		CookieMaxAge:   int(cfg.ClientTokenTTL.Seconds()),
		SecureCookie:   cfg.SecureCookie,
		Sessions:       manager,
		SessionTimeout: sessionTimeout,
		Store:          store,
		Orders:         order.NewService(store),
		Reviews:        review.NewService(store),
		Bookings:       booking.NewService(store),
		Finance:        finance.NewService(store),
		Errors:         errbus.New(),
		DebugErrors:    cfg.DebugErrors,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting palace server", "port", cfg.Port, "version", cfg.Version, "docstore", cfg.DocstoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	stop()

	slog.Info("server stopped gracefully")
}

// openStore opens the configured document store backend. The returned
// func releases it.
func openStore(ctx context.Context, cfg *config.Config, db *database.DB) (docstore.Store, func(), error) {
	rules := docstore.DefaultRules()

	switch cfg.DocstoreBackend {
	case config.BackendFirestore:
		fs, err := docstore.NewFirestoreStore(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentials, rules)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {
			if err := fs.Close(); err != nil {
				slog.Warn("failed to close firestore client", "error", err)
			}
		}, nil
	case config.BackendMemory:
		slog.Warn("using in-memory document store; data is lost on restart")
		return docstore.NewMemoryStore(rules), func() {}, nil
	default:
		ps := docstore.NewPostgresStore(db.Pool(), rules)
		go ps.Listen(ctx)
		return ps, func() {}, nil
	}
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(logHandler))
}
