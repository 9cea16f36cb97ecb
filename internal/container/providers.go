package container

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/approval-router/internal/application/dispatcher"
	"github.com/garyjia/approval-router/internal/application/port"
	"github.com/garyjia/approval-router/internal/application/service"
	"github.com/garyjia/approval-router/internal/domain/entity"
	"github.com/garyjia/approval-router/internal/domain/workflow"
	"github.com/garyjia/approval-router/internal/infrastructure/persistence/repository"
	"github.com/garyjia/approval-router/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/approval-router/internal/infrastructure/report"
	"github.com/garyjia/approval-router/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database, applies the embedded migrations and
// wraps the connection in a transaction manager.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(conn, logger)
	if _, err := migrator.RunMigrations(ctx, database.EmbeddedMigrations()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Conn:           conn,
		SqlDB:          conn.DB,
		TransactionMgr: sqlite.NewDB(conn.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Request:          repository.NewRequestRepository(sqlDB, logger),
		History:          repository.NewHistoryRepository(sqlDB, logger),
		Notification:     repository.NewNotificationRepository(sqlDB, logger),
		User:             repository.NewUserRepository(sqlDB, logger),
		LeaveEntitlement: repository.NewLeaveEntitlementRepository(sqlDB, logger),
	}, nil
}

// ProvideGate builds the routing gate from the configured department aliases.
func ProvideGate(cfg *RoutingConfig) *workflow.Gate {
	var departments *workflow.DepartmentClassifier
	if cfg != nil && len(cfg.DepartmentAliases) > 0 {
		departments = workflow.NewDepartmentClassifier(cfg.DepartmentAliases)
	}
	return workflow.NewGate(workflow.NewRouter(departments))
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger.Named("dispatcher")}),
	), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Gate       *workflow.Gate
	Dispatcher dispatcher.Dispatcher
	Leave      *LeaveConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services and subscribes the
// notification service to the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Gate == nil {
		return nil, fmt.Errorf("gate is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger.Named("service")}

	var defaults map[entity.RequestType]int
	if deps.Leave != nil {
		defaults = deps.Leave.DefaultEntitlements
	}

	directory := service.NewDirectoryService(deps.Repos.User)
	balance := service.NewLeaveBalanceService(deps.Repos.LeaveEntitlement, defaults, serviceLogger)

	notifications := service.NewNotificationService(
		deps.Repos.Request,
		deps.Repos.Notification,
		deps.Gate.Router(),
		serviceLogger,
	)
	if deps.Dispatcher != nil {
		notifications.Register(deps.Dispatcher)
	}

	requests := service.NewRequestService(
		deps.Repos.Request,
		deps.Repos.History,
		directory,
		balance,
		deps.TxManager,
		deps.Gate,
		deps.Dispatcher,
		serviceLogger,
	)

	return &ServiceBundle{
		Request:      requests,
		Notification: notifications,
		LeaveBalance: balance,
		Directory:    directory,
	}, nil
}

// ProvideExporter creates the register exporter.
func ProvideExporter(cfg *ReportConfig, logger *zap.Logger) port.RegisterExporter {
	sheet := ""
	if cfg != nil {
		sheet = cfg.SheetName
	}
	return report.NewRegisterExporter(sheet, logger.Named("report"))
}
