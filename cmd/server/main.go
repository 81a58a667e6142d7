// Command server starts the feedback insights HTTP server.
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

	httpserver "github.com/fairyhunter13/feedback-insights/internal/adapter/httpserver"
	"github.com/fairyhunter13/feedback-insights/internal/adapter/observability"
	"github.com/fairyhunter13/feedback-insights/internal/app"
	"github.com/fairyhunter13/feedback-insights/internal/config"
	"github.com/fairyhunter13/feedback-insights/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, AI and submission instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("store setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.close()

	if cfg.SeedSubjectsPath != "" {
		subjects, err := loadSeedSubjects(cfg.SeedSubjectsPath)
		if err != nil {
			slog.Error("seed load failed", slog.String("path", cfg.SeedSubjectsPath), slog.Any("error", err))
			os.Exit(1)
		}
		if _, err := seedSubjects(ctx, st.subjects, subjects); err != nil {
			slog.Error("seed failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		// pacing is optional; the analyzer runs unpaced without it
		slog.Warn("redis unavailable, AI pacing disabled", slog.Any("error", err))
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	analyzer := buildAnalyzer(cfg, rdb)
	status := analyzer.Status()
	slog.Info("AI analyzer initialized",
		slog.Bool("has_key", status.HasKey),
		slog.Int("credentials", status.Total),
		slog.Any("models", status.Models))

	publisher, closePublisher := buildPublisher(ctx, cfg)
	defer closePublisher()

	_, _, insightsTimeout := cfg.GetAITimeouts()
	feedbackSvc := usecase.NewFeedbackService(st.subjects, st.feedback, analyzer, publisher, cfg.RegisterHashPepper)
	analyticsSvc := usecase.NewAnalyticsService(st.subjects, st.feedback, analyzer, insightsTimeout)

	var redisClient app.RedisClient
	if rdb != nil {
		redisClient = app.RedisAdapter{Client: rdb}
	}
	var dbPinger app.Pinger
	if st.pool != nil {
		dbPinger = st.pool
	}
	dbCheck, redisCheck := app.BuildReadinessChecks(dbPinger, redisClient)

	srv := httpserver.NewServer(cfg, feedbackSvc, analyticsSvc, analyzer, dbCheck, redisCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("store", st.kind))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
