package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/campusworks/timesheet-approval/internal/application/decision"
	"github.com/campusworks/timesheet-approval/internal/application/dispatcher"
	"github.com/campusworks/timesheet-approval/internal/application/service"
	"github.com/campusworks/timesheet-approval/internal/config"
	"github.com/campusworks/timesheet-approval/internal/domain/policy"
	"github.com/campusworks/timesheet-approval/internal/domain/validation"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
	"github.com/campusworks/timesheet-approval/internal/export"
	httpserver "github.com/campusworks/timesheet-approval/internal/interfaces/http"
	"github.com/campusworks/timesheet-approval/internal/infrastructure/persistence/repository"
	"github.com/campusworks/timesheet-approval/internal/notification"
	"github.com/campusworks/timesheet-approval/internal/infrastructure/persistence/sqlite"
	"github.com/campusworks/timesheet-approval/pkg/utils"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = gotenv.Load()

	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting timesheet approval service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// The rule table must be internally consistent before anything is
	// served; a broken table is a deployment error, not a runtime one.
	registry := workflow.NewRegistry()
	if issues := registry.ValidateConsistency(); len(issues) > 0 {
		for _, issue := range issues {
			logger.Error("Workflow rule inconsistency", zap.Error(issue))
		}
		logger.Fatal("Refusing to start with an inconsistent workflow rule table")
	}

	bounds, err := cfg.Bounds()
	if err != nil {
		logger.Fatal("Invalid validation bounds", zap.Error(err))
	}

	db, err := sqlite.Open(sqlite.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories
	timesheetRepo := repository.NewTimesheetRepository(db.DB, logger)
	courseRepo := repository.NewCourseRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	approvalRepo := repository.NewApprovalRepository(db.DB, logger)

	// Domain core
	pol := policy.New()
	engine := validation.NewEngine(bounds)
	decisions := decision.NewService(registry, pol, engine, logger)

	// Transition events fan out post-commit to notification handlers
	serviceLogger := &zapLoggerAdapter{logger: logger}
	events := dispatcher.NewDispatcher(dispatcher.WithLogger(serviceLogger))
	defer events.Close()
	notifier := notification.NewTransitionNotifier(timesheetRepo, courseRepo, userRepo, logger)
	notifier.Register(events)

	// Application services
	approvalService := service.NewApprovalService(
		timesheetRepo, courseRepo, userRepo, approvalRepo,
		db, decisions, registry, pol, events, serviceLogger,
	)
	timesheetService := service.NewTimesheetService(
		timesheetRepo, courseRepo, userRepo, decisions, pol, serviceLogger,
	)
	payrollService := service.NewPayrollService(
		timesheetRepo, courseRepo, userRepo,
		export.NewPayrollWriter(cfg.Export.SheetName, logger),
		serviceLogger,
	)

	// HTTP adapter
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		timesheetService,
		approvalService,
		payrollService,
		bounds,
		serviceLogger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "configs/config.yaml"
}

// zapLoggerAdapter adapts zap.Logger to the service.Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Sugar().Infow(msg, keysAndValues...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Sugar().Errorw(msg, keysAndValues...)
}
