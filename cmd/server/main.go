package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilkin0/docguard/internal/api/handlers"
	"github.com/ilkin0/docguard/internal/api/routes"
	"github.com/ilkin0/docguard/internal/client"
	"github.com/ilkin0/docguard/internal/logger"
	"github.com/ilkin0/docguard/internal/metrics"
	"github.com/ilkin0/docguard/internal/policy"
	"github.com/ilkin0/docguard/internal/storage"
	"github.com/ilkin0/docguard/internal/utils"
	"github.com/ilkin0/docguard/internal/verify"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(logger.Init())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting docguard verification service",
		slog.String("version", "1.0.0"),
	)

	table, err := policy.Load(utils.GetEnv("POLICY_FILE", ""))
	if err != nil {
		slog.Error("failed to load policy table",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	slog.Info("policy table loaded",
		slog.Any("extensions", table.Extensions()),
		slog.Any("destinations", table.Destinations()),
	)

	recorder := metrics.New()

	verifyHandler := handlers.NewVerifyHandler(verify.New(table), recorder,
		utils.GetEnvInt64("MAX_REQUEST_BYTES", handlers.DefaultMaxRequestBytes))

	// Setup router
	r := chi.NewRouter()

	r.Use(logger.RequestID)
	r.Use(logger.RequestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if utils.GetEnvBool("METRICS_ENABLED", true) {
		r.Handle("/metrics", recorder.Handler())
	}

	r.Mount("/api/v1/verify", routes.VerifyRoutes(verifyHandler))

	storageCfg := storage.LoadConfig()
	if storageCfg.Enabled() {
		documentHandler, err := newDocumentHandler(ctx, storageCfg, table, recorder)
		if err != nil {
			slog.Error("failed to initialize document intake",
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		r.Mount("/api/v1/documents", routes.DocumentRoutes(documentHandler))
	} else {
		slog.Info("MINIO_ENDPOINT not set, document intake disabled")
	}

	port := utils.GetEnv("SERVER_PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed",
				slog.String("error", err.Error()),
			)
		}
	}()

	slog.Info("server starting",
		slog.String("port", port),
		slog.String("address", fmt.Sprintf("http://localhost:%s", port)),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed",
			slog.String("error", err.Error()),
			slog.String("port", port),
		)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func newDocumentHandler(ctx context.Context, cfg storage.Config, table *policy.Table, recorder *metrics.Recorder) (*handlers.DocumentHandler, error) {
	minioClient, err := storage.NewMinIOClient(cfg)
	if err != nil {
		return nil, err
	}

	ensureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := minioClient.EnsureBuckets(ensureCtx, table.Destinations()); err != nil {
		return nil, err
	}

	slog.Info("minio client initialized successfully",
		slog.String("endpoint", cfg.Endpoint),
		slog.Any("destinations", table.Destinations()),
	)

	clientCfg := client.LoadConfig()
	if clientCfg.ServiceURL == "" {
		slog.Warn("VERIFY_SERVICE_URL not set, intake uses local checks only")
	}

	return handlers.NewDocumentHandler(
		client.New(clientCfg, table, recorder),
		minioClient,
		table.DefaultDestination(),
		utils.GetEnvInt64("MAX_UPLOAD_BYTES", handlers.DefaultMaxUploadBytes),
	), nil
}
