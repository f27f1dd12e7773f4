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

	"github.com/redis/go-redis/v9"

	"alfapte/internal/config"
	"alfapte/internal/db"
	"alfapte/internal/httpapi"
	"alfapte/internal/llm"
	"alfapte/internal/questions"
	"alfapte/internal/ratelimit"
	"alfapte/internal/scoring"
	"alfapte/internal/transcribe"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := db.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("connect db failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		// Questions fall back to samples and attempts degrade to a
		// warning, so a cold database is not fatal.
		logger.Warn("migrate db failed, continuing degraded", "error", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	provider := llm.NewProvider(llm.Config{
		BaseURL: cfg.OpenAIBaseURL,
		APIKey:  cfg.OpenAIAPIKey,
	})

	var transcriber transcribe.Transcriber
	switch cfg.Transcriber {
	case "whisper":
		transcriber = transcribe.NewWhisper(&http.Client{Timeout: 60 * time.Second},
			cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.WhisperModel)
	default:
		transcriber = transcribe.NewMock()
	}

	server := httpapi.NewServer(httpapi.Config{
		SpeakingRateLimit: cfg.SpeakingRateLimit,
		WritingRateLimit:  cfg.WritingRateLimit,
		RateLimitWindow:   cfg.RateLimitWindow,
		StreamIdleTimeout: cfg.StreamIdleTimeout,
	}, httpapi.Deps{
		Producer:    scoring.NewProducer(provider, cfg.StreamModel, logger),
		Scorer:      scoring.NewStructuredScorer(provider, cfg.StructuredModel, logger),
		Attempts:    store,
		Questions:   questions.NewService(store, logger),
		Limiter:     ratelimit.New(redisClient, logger),
		Transcriber: transcriber,
		DBPing:      store.Ping,
		RedisPing: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
		Logger: logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("alfapte server started", "addr", cfg.HTTPAddr,
			"stream_model", cfg.StreamModel, "structured_model", cfg.StructuredModel,
			"transcriber", cfg.Transcriber)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
}
