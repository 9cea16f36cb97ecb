package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/approval-router/internal/config"
	"github.com/garyjia/approval-router/internal/container"
	httpserver "github.com/garyjia/approval-router/internal/interfaces/http"
	"github.com/garyjia/approval-router/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file (empty for defaults)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(cfg.LoggerSettings())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Approval router exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting approval router",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Path))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	containerCfg, err := cfg.ToContainerConfig()
	if err != nil {
		return fmt.Errorf("build container config: %w", err)
	}

	c, err := container.NewContainer(containerCfg, logger)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return fmt.Errorf("start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container close failed", zap.Error(err))
		}
	}()

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Mode:            cfg.Server.Mode,
	}, httpserver.Dependencies{
		Requests:      c.Services().Request,
		Notifications: c.Services().Notification,
		Leave:         c.Services().LeaveBalance,
		Users:         c.Repositories().User,
		Exporter:      c.Exporter(),
		Health: func(ctx context.Context) (bool, interface{}) {
			status := c.Health(ctx)
			return status.Overall, status.Components
		},
	}, c.LogAdapter())

	// Blocks until SIGINT/SIGTERM, then drains in-flight requests
	return server.Start(ctx)
}
