package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"InterviewBot/internal/backend"
	"InterviewBot/internal/config"
	"InterviewBot/internal/ingest"
	"InterviewBot/internal/interview"
	"InterviewBot/internal/server"
	"InterviewBot/internal/session"
	"InterviewBot/internal/storage"
	"InterviewBot/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interview HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "HTTP port")
	serveCmd.Flags().String("provider", "", "LLM backend (openai|anthropic|ollama|grok|azure)")
	serveCmd.Flags().String("model", "", "Provider model, e.g. llama3:latest for ollama or the azure deployment")
	serveCmd.Flags().Int("max-questions", 0, "Interviewer questions before the closing remark")
	bindFlag(v, serveCmd, "port", "port", false)
	bindFlag(v, serveCmd, "provider", "provider", false)
	bindFlag(v, serveCmd, "provider_model", "model", false)
	bindFlag(v, serveCmd, "max_questions", "max-questions", false)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger, logFile, err := telemetry.InitLogger(telemetry.LogOptions{
		Dir:   cfg.LogDir,
		Level: cfg.LogLevel,
		Debug: cfg.Debug,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, meter, shutdownTelemetry, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer shutdownTelemetry()

	durable, err := storage.Open(cfg.StoreDSN)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	store := session.NewStore(durable, cfg.CacheSize, cfg.CacheTTL, logger)
	defer store.Close()

	provider, err := backend.New(backend.Options{
		Kind:     cfg.Provider,
		APIKey:   cfg.ProviderAPIKey,
		Model:    cfg.ProviderModel,
		Endpoint: cfg.ProviderEndpoint,
		Tracer:   tracer,
		Meter:    meter,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize provider: %w", err)
	}
	provider = backend.WithTimeout(provider, cfg.ProviderTimeout)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := server.NewMetrics(reg, store.Cached)
	store.OnDurableFailure = metrics.DurableWriteFailed

	orch := interview.New(store, provider, interview.Config{
		MaxQuestions: cfg.MaxQuestions,
		Logger:       logger,
		Metrics:      metrics,
	})

	uploader, err := ingest.NewUploader(cfg.UploadDir)
	if err != nil {
		return err
	}

	srv := server.New(orch, uploader, metrics, reg, logger)

	logger.Info("interviewbot configured",
		"provider", provider.Name(),
		"store", cfg.StoreDSN,
		"max_questions", orch.MaxQuestions(),
		"cache_size", cfg.CacheSize,
		"cache_ttl", cfg.CacheTTL)
	fmt.Fprintf(cmd.OutOrStdout(), "Server running on port %d (provider %s)\n", cfg.Port, provider.Name())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Port, cfg.ProviderTimeout+30*time.Second)
	})
	g.Go(func() error {
		purgeExpired(gctx, store, cfg.CacheTTL, logger)
		return nil
	})
	return g.Wait()
}

// purgeExpired drops expired cache entries until ctx is done
func purgeExpired(ctx context.Context, store *session.Store, ttl time.Duration, logger *slog.Logger) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Purge(); n > 0 {
				logger.Debug("purged expired sessions from cache", "count", n)
			}
		}
	}
}
