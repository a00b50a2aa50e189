package app

import (
	"net/http"
	"os"

	"github.com/Christabll/IST-LeaveManagementService/internal/balance"
	"github.com/Christabll/IST-LeaveManagementService/internal/holiday"
	"github.com/Christabll/IST-LeaveManagementService/internal/leave"
	"github.com/Christabll/IST-LeaveManagementService/internal/leavetype"
	"github.com/Christabll/IST-LeaveManagementService/internal/middleware"
	"github.com/Christabll/IST-LeaveManagementService/internal/notification"
	"github.com/Christabll/IST-LeaveManagementService/internal/report"
	"github.com/Christabll/IST-LeaveManagementService/internal/shared/apperror"
	"github.com/Christabll/IST-LeaveManagementService/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BuildApp connects the backing stores, wires the registry, and
// returns a ready router. The cleanup function closes every
// connection the app opened.
func BuildApp(logger *zap.Logger) (*gin.Engine, *Registry, func(), error) {
	apperror.Init()

	db, err := connection.ConnectGORMWithRetry(
		envOr("DB_HOST", "localhost"),
		envOr("DB_USER", "postgres"),
		os.Getenv("DB_PASSWORD"),
		envOr("DB_NAME", "leave_management"),
		envOr("DB_PORT", "5432"),
		envOr("DB_SSLMODE", "disable"),
		5,
	)
	if err != nil {
		return nil, nil, nil, err
	}

	rdb, err := connection.ConnectRedisWithRetry(envOr("REDIS_ADDR", "localhost:6379"), 5)
	if err != nil {
		return nil, nil, nil, err
	}

	reg, err := BuildRegistry(db, rdb, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	router := NewRouter(reg)

	cleanup := func() {
		_ = rdb.Close()
		_ = reg.SQLDB.Close()
	}

	return router, reg, cleanup, nil
}

// NewRouter assembles the HTTP surface from an already-built registry.
func NewRouter(reg *Registry) *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimitByIP(50, 100))
	router.Use(middleware.AuditTrail(reg.Audit))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	leavetype.RegisterRoutes(api, reg.LeaveTypeHandler, reg.RBAC)
	holiday.RegisterRoutes(api, reg.HolidayHandler, reg.RBAC)
	balance.RegisterRoutes(api, reg.BalanceHandler, reg.RBAC)
	leave.RegisterRoutes(api, reg.LeaveHandler, reg.RBAC)
	notification.RegisterRoutes(api, reg.NotificationHandler, reg.RBAC)
	report.RegisterRoutes(api, reg.ReportHandler, reg.RBAC)

	return router
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
