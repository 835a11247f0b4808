package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relayhub/internal/bot"
	"relayhub/internal/config"
	"relayhub/internal/constants"
	"relayhub/internal/database"
	"relayhub/internal/retry"
	"relayhub/internal/service"
	"relayhub/internal/tracing"
	"relayhub/pkg/telegram"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("RelayHub %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Optional .env for local development; absence is not an error.
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded environment from .env")
	}

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting RelayHub")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	tracingManager := tracing.NewManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Initialize database with exponential backoff retry
	var db *database.Database
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: constants.DefaultBackoffInitialMs * time.Millisecond,
		MaxDelay:     constants.DefaultBackoffMaxSec * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	})
	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer db.Close()

	for _, adminID := range cfg.Telegram.InitialAdminIDs {
		if err := db.EnsureAdminUser(ctx, adminID); err != nil {
			return fmt.Errorf("failed to seed admin user %d: %w", adminID, err)
		}
	}

	transport, err := telegram.NewClient(cfg.Telegram.BotToken, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telegram client: %w", err)
	}

	buffer := service.NewIntakeBuffer(time.Duration(cfg.Relay.AlbumDebounceMs)*time.Millisecond, logger)
	fanout := service.NewFanOutEngine(db, db, transport,
		cfg.Relay.RecipientBatchSize,
		time.Duration(cfg.Relay.BatchPauseSec)*time.Second,
		logger)
	dispatcher := service.NewDispatcher(buffer, fanout,
		time.Duration(cfg.Relay.DispatchIntervalSec)*time.Second,
		logger)
	direct := service.NewDirectRelay(db, db, transport,
		time.Duration(cfg.Relay.DirectPauseMs)*time.Millisecond,
		logger)
	moderation := service.NewModerationService(db, db, transport,
		constants.DefaultDeletePauseMs*time.Millisecond,
		constants.DefaultPinPauseMs*time.Millisecond,
		logger)
	broadcaster := service.NewBroadcaster(db, db, transport, moderation, service.BroadcasterConfig{
		ServiceMessageInterval: constants.DefaultServiceMessageSec * time.Second,
		InactivitySweep:        constants.DefaultInactivitySweepSec * time.Second,
		InactivityCutoff:       time.Duration(cfg.Relay.InactivityDays) * 24 * time.Hour,
		DailySummaryInterval:   constants.DefaultDailySummarySec * time.Second,
		WeeklySummaryInterval:  constants.DefaultWeeklySummarySec * time.Second,
		TopSendersLimit:        constants.DefaultTopSendersLimit,
		ApprovalChannelID:      cfg.Telegram.ApprovalChannelID,
	}, logger)

	router := bot.NewRouter(db, moderation, broadcaster, buffer, direct, transport,
		cfg.Telegram.ApprovalChannelID,
		constants.DefaultStatsTopSendersLimit,
		logger)

	go dispatcher.Start(ctx)
	defer dispatcher.Stop()
	go broadcaster.Start(ctx)
	defer broadcaster.Stop()

	server := NewServer(cfg.Server.Port, moderation, logger)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		transport.Listen(ctx, router)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultGracefulShutdownSec*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	<-listenerDone
	dispatcher.Wait()

	logger.Info("Shutdown completed")
	return nil
}
