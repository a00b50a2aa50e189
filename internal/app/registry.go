package app

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/Christabll/IST-LeaveManagementService/internal/balance"
	"github.com/Christabll/IST-LeaveManagementService/internal/bootstrap"
	"github.com/Christabll/IST-LeaveManagementService/internal/holiday"
	"github.com/Christabll/IST-LeaveManagementService/internal/leave"
	"github.com/Christabll/IST-LeaveManagementService/internal/leavetype"
	"github.com/Christabll/IST-LeaveManagementService/internal/messaging/kafka"
	"github.com/Christabll/IST-LeaveManagementService/internal/notification"
	"github.com/Christabll/IST-LeaveManagementService/internal/rbac"
	"github.com/Christabll/IST-LeaveManagementService/internal/report"
	"github.com/Christabll/IST-LeaveManagementService/internal/scheduler"
	"github.com/Christabll/IST-LeaveManagementService/internal/shared/counter"
	"github.com/Christabll/IST-LeaveManagementService/internal/userdir"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Registry holds every wired component. Both the API and the workers
// are built from the same registry so they share one object graph.
type Registry struct {
	DB    *gorm.DB
	SQLDB *sql.DB
	Redis *redis.Client

	RBAC rbac.Service

	LeaveTypeService    leavetype.Service
	HolidayService      holiday.Service
	BalanceService      balance.Service
	LeaveService        leave.Service
	NotificationService notification.Service
	ReportService       report.Service
	SchedulerService    scheduler.Service

	OutboxRepo kafka.OutboxRepository
	Audit      *bootstrap.AuditLogger

	LeaveTypeHandler    *leavetype.Handler
	HolidayHandler      *holiday.Handler
	BalanceHandler      *balance.Handler
	LeaveHandler        *leave.Handler
	NotificationHandler *notification.Handler
	ReportHandler       *report.Handler
}

func BuildRegistry(db *gorm.DB, rdb *redis.Client, logger *zap.Logger) (*Registry, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	rbacService, err := rbac.NewService()
	if err != nil {
		return nil, err
	}

	userdirClient := userdir.NewClient(
		os.Getenv("USERDIR_BASE_URL"),
		3*time.Second,
		logger,
	)

	leaveTypeRepo := leavetype.NewRepository(db)
	leaveTypeService := leavetype.NewService(leaveTypeRepo, rdb, logger)

	holidayRepo := holiday.NewRepository(db)
	holidayService := holiday.NewService(holidayRepo, logger)

	skipManual := os.Getenv("ACCRUAL_SKIP_MANUAL") == "true"
	balanceRepo := balance.NewRepository(sqlDB)
	balanceService := balance.NewService(sqlDB, balanceRepo, leaveTypeService, userdirClient, skipManual, logger)

	counterRepo := counter.NewRepository(db)
	outboxRepo := kafka.NewOutboxRepository(sqlDB)

	leaveRepo := leave.NewRepository(sqlDB)
	leaveService := leave.NewService(
		sqlDB, leaveRepo, balanceService, leaveTypeService, holidayService,
		counterRepo, outboxRepo, userdirClient, logger,
	)
	balanceService.SetApprovedDaysSource(leave.NewApprovedDaysCounter(leaveRepo, holidayService))

	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo, logger)

	reportRepo := report.NewRepository(db)
	reportService := report.NewService(reportRepo, holidayService, userdirClient, logger)

	schedulerService := scheduler.NewService(balanceService, rdb, logger)

	if err := seed(leaveTypeService, holidayService, logger); err != nil {
		return nil, err
	}

	return &Registry{
		DB:    db,
		SQLDB: sqlDB,
		Redis: rdb,

		RBAC: rbacService,

		LeaveTypeService:    leaveTypeService,
		HolidayService:      holidayService,
		BalanceService:      balanceService,
		LeaveService:        leaveService,
		NotificationService: notificationService,
		ReportService:       reportService,
		SchedulerService:    schedulerService,

		OutboxRepo: outboxRepo,
		Audit:      bootstrap.NewAuditLogger(db, logger),

		LeaveTypeHandler:    leavetype.NewHandler(leaveTypeService, logger),
		HolidayHandler:      holiday.NewHandler(holidayService, logger),
		BalanceHandler:      balance.NewHandler(balanceService, logger),
		LeaveHandler:        leave.NewHandler(leaveService, logger),
		NotificationHandler: notification.NewHandler(notificationService, logger),
		ReportHandler:       report.NewHandler(reportService, logger),
	}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&leavetype.LeaveType{},
		&holiday.PublicHoliday{},
		&balance.LeaveBalance{},
		&leave.LeaveRequest{},
		&notification.Notification{},
		&bootstrap.AuditLog{},
	); err != nil {
		return err
	}

	// Tables owned by raw-SQL repositories.
	return db.Exec(`
CREATE TABLE IF NOT EXISTS outbox_events (
	id UUID PRIMARY KEY,
	request_id TEXT,
	aggregate_type TEXT NOT NULL,
	aggregate_id UUID NOT NULL,
	event_type TEXT NOT NULL,
	topic TEXT NOT NULL,
	payload JSONB NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	retry_count INT NOT NULL DEFAULT 0,
	error_message TEXT,
	next_retry_at TIMESTAMPTZ,
	processed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_outbox_events_status_created ON outbox_events (status, created_at);

CREATE TABLE IF NOT EXISTS counters (
	scope TEXT NOT NULL,
	counter_type TEXT NOT NULL,
	last_value BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (scope, counter_type)
);
`).Error
}

func seed(leaveTypes leavetype.Service, holidays holiday.Service, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := leaveTypes.SeedDefaults(ctx); err != nil {
		logger.Error("seed leave types failed", zap.Error(err))
		return err
	}

	year := time.Now().Year()
	for _, y := range []int{year, year + 1} {
		if err := holidays.SeedDefaults(ctx, y); err != nil {
			logger.Error("seed holidays failed", zap.Int("year", y), zap.Error(err))
			return err
		}
	}

	return nil
}
