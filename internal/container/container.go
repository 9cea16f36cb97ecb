package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/approval-router/internal/application/dispatcher"
	"github.com/garyjia/approval-router/internal/application/port"
	"github.com/garyjia/approval-router/internal/application/service"
	"github.com/garyjia/approval-router/internal/domain/workflow"
	"github.com/garyjia/approval-router/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/approval-router/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// It follows Clean Architecture principles with ordered initialization
// and reverse-order teardown.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	conn         *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle
	exporter     port.RegisterExporter

	// Application
	gate       *workflow.Gate
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Request          port.RequestRepository
	History          port.HistoryRepository
	Notification     port.NotificationRepository
	User             port.UserRepository
	LeaveEntitlement port.LeaveEntitlementRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Request      service.RequestService
	Notification service.NotificationService
	LeaveBalance *service.LeaveBalanceService
	Directory    *service.DirectoryService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order:
// 1. Database, migrations and repositories
// 2. Directory seed
// 3. Routing gate and event dispatcher
// 4. Application services and event subscriptions
// 5. Register exporter
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.seedUsers(ctx); err != nil {
		_ = c.conn.Close()
		return fmt.Errorf("failed to seed users: %w", err)
	}

	if err := c.initServices(); err != nil {
		_ = c.conn.Close()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	c.exporter = ProvideExporter(&c.config.Report, c.logger)

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
// Pending asynchronous event handlers finish before the database closes.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return errors.Join(errs...)
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, healthy bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: msg}
		if !healthy {
			status.Overall = false
		}
	}

	switch {
	case c.conn == nil:
		set("database", false, "not initialized")
	default:
		if err := c.conn.Health(ctx); err != nil {
			set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("database", true, "")
		}
	}

	set("dispatcher", c.dispatcher != nil, notInitialized(c.dispatcher != nil))
	set("repositories", c.repositories != nil, notInitialized(c.repositories != nil))
	set("services", c.services != nil, notInitialized(c.services != nil))

	return status
}

func notInitialized(ok bool) string {
	if ok {
		return ""
	}
	return "not initialized"
}

func (c *Container) initDatabase(ctx context.Context) error {
	bundle, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.conn = bundle.Conn
	c.db = bundle.TransactionMgr

	repos, err := ProvideRepositories(bundle.SqlDB, c.logger)
	if err != nil {
		_ = c.conn.Close()
		return err
	}

	c.repositories = repos
	return nil
}

func (c *Container) seedUsers(ctx context.Context) error {
	for i := range c.config.SeedUsers {
		u := c.config.SeedUsers[i]
		if err := c.repositories.User.Upsert(ctx, &u); err != nil {
			return err
		}
	}
	if n := len(c.config.SeedUsers); n > 0 {
		c.logger.Info("Directory seeded", zap.Int("users", n))
	}
	return nil
}

func (c *Container) initServices() error {
	c.gate = ProvideGate(&c.config.Routing)

	d, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = d

	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Gate:       c.gate,
		Dispatcher: c.dispatcher,
		Leave:      &c.config.Leave,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Gate returns the routing gate.
func (c *Container) Gate() *workflow.Gate {
	return c.gate
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Exporter returns the register exporter.
func (c *Container) Exporter() port.RegisterExporter {
	return c.exporter
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// LogAdapter returns the key-value logger handed to services, for outer adapters.
func (c *Container) LogAdapter() service.Logger {
	return &zapLoggerAdapter{logger: c.logger}
}

// zapLoggerAdapter adapts zap.Logger to the service and dispatcher Logger interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

var (
	_ service.Logger    = (*zapLoggerAdapter)(nil)
	_ dispatcher.Logger = (*zapLoggerAdapter)(nil)
)
