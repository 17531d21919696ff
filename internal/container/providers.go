package container

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/vendor-attendance/internal/application/dispatcher"
	"github.com/garyjia/vendor-attendance/internal/application/service"
	"github.com/garyjia/vendor-attendance/internal/domain/billing"
	"github.com/garyjia/vendor-attendance/internal/domain/event"
	"github.com/garyjia/vendor-attendance/internal/domain/reconcile"
	"github.com/garyjia/vendor-attendance/internal/infrastructure/importer"
	"github.com/garyjia/vendor-attendance/internal/infrastructure/persistence/repository"
	"github.com/garyjia/vendor-attendance/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/vendor-attendance/internal/infrastructure/storage"
	"github.com/garyjia/vendor-attendance/internal/infrastructure/worker"
	"github.com/garyjia/vendor-attendance/migrations"
	"github.com/garyjia/vendor-attendance/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if cfg.MigrationsDir != "" {
		err = migrator.RunMigrations(cfg.MigrationsDir)
	} else {
		err = migrator.Run(migrations.FS)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
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
		Vendor:      repository.NewVendorRepository(sqlDB, logger),
		Manager:     repository.NewManagerRepository(sqlDB, logger),
		DailyStatus: repository.NewDailyStatusRepository(sqlDB, logger),
		Swipe:       repository.NewSwipeRecordRepository(sqlDB, logger),
		Mismatch:    repository.NewMismatchRepository(sqlDB, logger),
		Holiday:     repository.NewHolidayRepository(sqlDB, logger),
		AuditLog:    repository.NewAuditLogRepository(sqlDB, logger),
		Correction:  repository.NewHoursCorrectionRepository(sqlDB, logger),
	}, nil
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
	TxManager  *sqlite.DB
	Dispatcher dispatcher.Dispatcher
	Config     *Config
	Clock      service.Clock
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	r := deps.Repos
	cfg := deps.Config
	loc := cfg.Reconciliation.Location
	serviceLogger := &zapLoggerAdapter{logger: deps.Logger.Named("service")}

	var publisher service.EventPublisher
	if deps.Dispatcher != nil {
		publisher = deps.Dispatcher
	}

	calendar := service.NewCalendarService(r.Holiday)
	archive := storage.NewLocalImportArchive(cfg.Import.ArchiveDir, deps.Logger.Named("archive"))
	reader := importer.NewSwipeReader(cfg.Import.SheetName, loc, deps.Logger.Named("importer"))

	return &ServiceBundle{
		Calendar: calendar,
		Vendor:   service.NewVendorService(r.Vendor, r.Manager, serviceLogger),
		Holiday:  service.NewHolidayService(r.Holiday, serviceLogger),
		Status: service.NewStatusService(
			r.DailyStatus, r.Vendor, r.Manager, r.AuditLog,
			deps.TxManager, publisher, deps.Clock, serviceLogger,
		),
		Mismatch: service.NewMismatchService(
			r.Mismatch, r.DailyStatus, r.Swipe, r.Vendor, r.Manager, r.AuditLog,
			calendar, reconcile.NewDetector(cfg.Reconciliation.AbsentCodes),
			deps.TxManager, publisher, deps.Clock, loc, serviceLogger,
		),
		Billing: service.NewBillingService(
			billing.NewGate(cfg.Billing.GraceDay),
			r.DailyStatus, r.Swipe, r.Correction, r.Vendor, r.Manager, r.AuditLog,
			calendar, deps.TxManager, publisher, deps.Clock, loc, serviceLogger,
		),
		Report: service.NewReportService(r.Mismatch, r.Vendor, r.Manager, r.AuditLog, deps.Clock, serviceLogger),
		Import: service.NewSwipeImportService(
			r.Swipe, r.Vendor, reader, archive,
			deps.TxManager, publisher, deps.Clock, serviceLogger,
		),
	}, nil
}

// SubscribeHandlers registers the event handlers that keep mismatches current.
// Swipe imports and late status edits both trigger re-detection of the affected dates.
func SubscribeHandlers(d dispatcher.Dispatcher, services *ServiceBundle, cfg *ReconciliationConfig, logger *zap.Logger) {
	if cfg.RunOnImport {
		d.Subscribe(event.TypeSwipesImported, "mismatch_detector", services.Mismatch.HandleSwipesImported)
	}
	d.Subscribe(event.TypeStatusSubmitted, "mismatch_detector", services.Mismatch.HandleStatusSubmitted)

	activity := activityLogger(logger.Named("activity"))
	for _, t := range []event.Type{
		event.TypeSwipesImported,
		event.TypeStatusSubmitted,
		event.TypeStatusDecided,
		event.TypeMismatchDetected,
		event.TypeMismatchDecided,
		event.TypeHoursCorrected,
	} {
		d.Subscribe(t, "activity_log", activity)
	}
}

// activityLogger writes one structured line per domain event
func activityLogger(logger *zap.Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		logger.Info("Domain event",
			zap.String("event_id", evt.ID),
			zap.String("type", evt.Type.String()),
			zap.String("actor", evt.Actor),
			zap.String("vendor_id", evt.VendorID),
			zap.Int64("record_id", evt.RecordID),
			zap.Any("payload", evt.Payload))
		return nil
	}
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	Services *ServiceBundle
	Config   *ReconciliationConfig
	Logger   *zap.Logger
}

// ProvideWorkers creates and registers all background workers.
// The returned manager has nothing started.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.Services == nil {
		return nil, fmt.Errorf("services are required")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("reconciliation config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewManager(deps.Logger.Named("workers"))

	if deps.Config.WorkerEnabled {
		manager.Register(worker.NewDetectionWorker(deps.Services.Mismatch, worker.DetectionConfig{
			Interval:     deps.Config.Interval,
			LookbackDays: deps.Config.LookbackDays,
			RunTimeout:   deps.Config.RunTimeout,
			Location:     deps.Config.Location,
		}, deps.Logger.Named("detection")))
	}

	return manager, nil
}
