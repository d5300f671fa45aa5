package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/NagaaSaketh/KaviosPix-BE/internal/config"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/oauth"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/oauth/provider"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/pkg/middleware"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/pkg/router"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/rest"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/service"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/session"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/store"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/token"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func run(ctx context.Context) error {
	slog.Info("starting kaviospix backend")

	cfg := config.FromEnv()
	db, err := store.NewPostgresDB(store.PostgresConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DB:       cfg.DB.DB,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	defer db.Close()

	if err := runMigrations(db, cfg.DB.MigrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := os.MkdirAll(cfg.Uploads.Root, 0o755); err != nil {
		return fmt.Errorf("failed to create upload root: %w", err)
	}

	revoker := session.NewRedisRevoker(session.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer revoker.Close()

	auth := oauth.NewAuthenticator(cfg.OAuth.ExchangeTimeout)
	if err := registerProviders(ctx, auth, cfg); err != nil {
		return fmt.Errorf("failed to register oauth providers: %w", err)
	}

	pgs := store.NewPostgresStore(db)
	issuer := token.NewIssuer(token.IssuerConfig{
		Secret: token.NewSecretString(cfg.Session.Secret),
		Issuer: cfg.Session.Issuer,
		TTL:    cfg.Session.TTL,
	})

	authSrv := service.NewAuth(
		service.WithAuthenticator(auth),
		service.WithAuthStore(pgs),
		service.WithCredentialIssuer(issuer),
	)
	imageSrv := service.NewImageService(pgs, service.ImageServiceConfig{
		Root: cfg.Uploads.Root,
	})
	albumSrv := service.NewAlbumService(pgs, imageSrv)

	api := rest.NewAPI(rest.APIConfig{
		Auth:        authSrv,
		Albums:      albumSrv,
		Images:      imageSrv,
		Verifier:    issuer,
		Revoker:     revoker,
		Store:       pgs,
		FrontendURL: cfg.Frontend,
		CookieTTL:   cfg.Session.TTL,
		MaxUpload:   cfg.Uploads.MaxBytes,
		Production:  cfg.Session.Production,
	})

	rt := router.New()
	rt.Use(middleware.Recover(), middleware.Log())
	rt.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rt.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	rt.Handle("/", api)

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.ListenAddr,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		Handler:      rt,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runMigrations(db *sql.DB, folder string) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance("file://"+folder, "kaviospix", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

func registerProviders(ctx context.Context, auth *oauth.Authenticator, cfg config.Config) error {
	prvGoogle, err := provider.NewGoogle(ctx, provider.GoogleConfig{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		RedirectURL:  cfg.OAuth.GoogleRedirectURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create google oauth provider: %w", err)
	}

	return auth.Use("google", prvGoogle)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("kaviospix backend terminated with error", "error", err)
		os.Exit(1)
	}
}
