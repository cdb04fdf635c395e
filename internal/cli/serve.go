package cli

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eshaffer321/preorder-gather/internal/api"
	"github.com/eshaffer321/preorder-gather/internal/infrastructure/config"
	"github.com/eshaffer321/preorder-gather/internal/infrastructure/logging"
	"github.com/eshaffer321/preorder-gather/internal/infrastructure/storage"
)

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	Port       int
	ConfigPath string
	EnvFile    string
	Verbose    bool
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags() *ServeFlags {
	flags := &ServeFlags{}
	flag.IntVar(&flags.Port, "port", 0, "Port to listen on (0 = from config)")
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "Path to the YAML config file")
	flag.StringVar(&flags.EnvFile, "env-file", config.DefaultEnvFile, "Path to the dotenv credentials file")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.Parse()
	return flags
}

// APIConfig builds the server configuration, preferring the -port flag.
func (f *ServeFlags) APIConfig(cfg *config.Config) api.Config {
	apiCfg := api.DefaultConfig()
	if cfg.API.Port != 0 {
		apiCfg.Port = cfg.API.Port
	}
	if len(cfg.API.AllowedOrigins) > 0 {
		apiCfg.AllowedOrigins = cfg.API.AllowedOrigins
	}
	if f.Port != 0 {
		apiCfg.Port = f.Port
	}
	return apiCfg
}

// RunServe runs the API server.
func RunServe(cfg *config.Config, flags *ServeFlags) error {
	// Set up logging
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger, closer := logging.NewLoggerWithSystem(loggingCfg, "api")
	defer func() { _ = closer.Close() }()

	// Initialize storage
	store, err := storage.NewStorageWithLogger(cfg.Storage.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	server := api.NewServer(flags.APIConfig(cfg), store, logger)

	// Handle graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
