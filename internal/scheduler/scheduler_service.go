package scheduler

import (
	"context"
	"net/http"
	"time"

	"github.com/Christabll/IST-LeaveManagementService/internal/balance"
	"github.com/Christabll/IST-LeaveManagementService/internal/shared/apperror"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	accrualMarkerPrefix   = "scheduler:accrual:"
	carryOverMarkerPrefix = "scheduler:carryover:"

	// Markers outlive their period slightly so a clock skewed replica
	// cannot rerun a finished batch right at the boundary.
	accrualMarkerTTL   = 40 * 24 * time.Hour
	carryOverMarkerTTL = 400 * 24 * time.Hour
)

//go:generate mockgen -source=scheduler_service.go -destination=mock/scheduler_service_mock.go -package=mock
type Service interface {
	// RunMonthlyAccrual executes the accrual batch at most once per
	// calendar month across all replicas.
	RunMonthlyAccrual(ctx context.Context, now time.Time) (balance.BatchResult, bool, error)
	// RunYearEndCarryOver executes the carry-over batch at most once per
	// closed year.
	RunYearEndCarryOver(ctx context.Context, fromYear int) (balance.BatchResult, bool, error)
}

type service struct {
	balances balance.Service
	rdb      *redis.Client
	logger   *zap.Logger
}

func NewService(balances balance.Service, rdb *redis.Client, logger ...*zap.Logger) Service {
	l := zap.L().Named("scheduler.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("scheduler.service")
	}
	return &service{balances: balances, rdb: rdb, logger: l}
}

func (s *service) RunMonthlyAccrual(ctx context.Context, now time.Time) (balance.BatchResult, bool, error) {
	marker := accrualMarkerPrefix + now.Format("2006-01")

	acquired, err := s.acquireMarker(ctx, marker, accrualMarkerTTL)
	if err != nil {
		return balance.BatchResult{}, false, err
	}
	if !acquired {
		s.logger.Debug("monthly accrual already ran this period", zap.String("marker", marker))
		return balance.BatchResult{}, false, nil
	}

	result, err := s.balances.AccrueMonthly(ctx, now)
	if err != nil {
		// Release the marker so the next tick can retry the period.
		s.releaseMarker(ctx, marker)
		return balance.BatchResult{}, false, err
	}

	return result, true, nil
}

func (s *service) RunYearEndCarryOver(ctx context.Context, fromYear int) (balance.BatchResult, bool, error) {
	marker := carryOverMarkerPrefix + time.Date(fromYear, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")

	acquired, err := s.acquireMarker(ctx, marker, carryOverMarkerTTL)
	if err != nil {
		return balance.BatchResult{}, false, err
	}
	if !acquired {
		s.logger.Debug("year-end carry over already ran", zap.String("marker", marker))
		return balance.BatchResult{}, false, nil
	}

	result, err := s.balances.CarryOverYearEnd(ctx, fromYear)
	if err != nil {
		s.releaseMarker(ctx, marker)
		return balance.BatchResult{}, false, err
	}

	return result, true, nil
}

func (s *service) acquireMarker(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := s.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		s.logger.Error("scheduler marker acquisition failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return false, apperror.Wrap(err, apperror.CodeDependencyUnavailable,
			"scheduler coordination store is unavailable", http.StatusServiceUnavailable)
	}
	return acquired, nil
}

func (s *service) releaseMarker(ctx context.Context, key string) {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.logger.Error("scheduler marker release failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
