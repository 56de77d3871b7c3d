package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duttnikhil/voice-bot/internal/config"
	"github.com/duttnikhil/voice-bot/internal/metrics"
	"github.com/duttnikhil/voice-bot/internal/orchestrator"
	"github.com/duttnikhil/voice-bot/internal/server"
	"github.com/duttnikhil/voice-bot/internal/session"
	"github.com/duttnikhil/voice-bot/internal/synthesis"
	"github.com/duttnikhil/voice-bot/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "voice-bot"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("bind_address", cfg.Server.Address),
		slog.Int("port", cfg.Server.Port),
		slog.String("public_domain", cfg.Public.Domain),
		slog.String("telephony_domain", cfg.Telephony.Domain),
		slog.Int("turn_threshold_bytes", cfg.Audio.TurnThresholdBytes),
		slog.Int("inactivity_timeout", cfg.Session.InactivityTimeout),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("synthesis_endpoint", cfg.Synthesis.Endpoint),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize session registry
	registry := session.NewRegistry(logger, session.Config{
		InactivityTimeout:  cfg.Session.GetInactivityTimeout(),
		CleanupInterval:    cfg.Session.GetCleanupInterval(),
		MaxSessions:        cfg.Session.MaxSessions,
		TurnThresholdBytes: cfg.Audio.TurnThresholdBytes,
	})
	logger.Info("Session registry initialized",
		slog.Duration("inactivity_timeout", cfg.Session.GetInactivityTimeout()),
		slog.Int("max_sessions", cfg.Session.MaxSessions),
	)

	// Initialize speech gateway clients
	transcriber, err := transcription.NewClient(transcription.Config{
		Endpoint:      cfg.Transcription.Endpoint,
		APIKey:        cfg.Transcription.APIKey,
		Model:         cfg.Transcription.Model,
		Timeout:       cfg.Transcription.GetTimeoutDuration(),
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
	})
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	synthesizer, err := synthesis.NewClient(synthesis.Config{
		Endpoint:        cfg.Synthesis.Endpoint,
		APIKey:          cfg.Synthesis.APIKey,
		VoiceID:         cfg.Synthesis.VoiceID,
		ModelID:         cfg.Synthesis.ModelID,
		Timeout:         cfg.Synthesis.GetTimeoutDuration(),
		Stability:       cfg.Synthesis.Stability,
		SimilarityBoost: cfg.Synthesis.SimilarityBoost,
		MaxConcurrent:   cfg.Synthesis.MaxConcurrent,
	})
	if err != nil {
		logger.Error("Failed to create synthesis client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Speech gateway clients initialized")

	// Initialize the turn orchestrator
	orch := orchestrator.New(logger, appMetrics, transcriber, synthesizer, orchestrator.Config{
		SilenceThreshold: cfg.Audio.SilenceThreshold,
	})

	// Initialize and start the HTTP server
	httpServer := server.NewServer(logger, cfg, registry, orch, transcriber, synthesizer, appMetrics)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Stop the session registry (halt the expiry sweep)
	registry.Stop()

	// Get final statistics
	stats := registry.Stats()
	logger.Info("Final session statistics",
		slog.Int("active_sessions", stats.Active),
		slog.Uint64("sessions_created", stats.Created),
		slog.Uint64("sessions_destroyed", stats.Destroyed),
		slog.Uint64("sessions_expired", stats.Expired),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
