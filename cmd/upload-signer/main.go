// upload-signer issues signed upload URLs and stores the uploaded objects.
package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/tecem/srma/internal/api"
	"github.com/tecem/srma/internal/config"
	"github.com/tecem/srma/internal/middleware"
	"github.com/tecem/srma/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.LoadSigner()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	bucket, err := storage.NewBucket(cfg.BucketDir, cfg.MaxUploadSize)
	if err != nil {
		slog.Error("Failed to initialize bucket", "error", err)
		os.Exit(1)
	}
	signer := storage.NewSigner(cfg.SigningKey, cfg.URLTTL, cfg.PublicBaseURL)
	storageHandler := api.NewStorageHandler(signer, bucket, tokenValidator(cfg.APITokens), logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	storageHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute, // large uploads
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Upload signer listening",
			"addr", srv.Addr,
			"public_url", cfg.PublicBaseURL,
			"bucket", cfg.BucketDir,
			"url_ttl", cfg.URLTTL,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// tokenValidator accepts any bearer token unless an allow-list is configured.
func tokenValidator(allowed []string) middleware.TokenValidator {
	if len(allowed) == 0 {
		return middleware.AnyToken
	}
	return func(token string) bool {
		for _, a := range allowed {
			if subtle.ConstantTimeCompare([]byte(token), []byte(a)) == 1 {
				return true
			}
		}
		return false
	}
}
