package leavetype

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	leavetypeerrors "github.com/Christabll/IST-LeaveManagementService/internal/leavetype/errors"
	"github.com/Christabll/IST-LeaveManagementService/internal/shared/days"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const catalogCacheKey = "leave_types:catalog"

//go:generate mockgen -source=leavetype_service.go -destination=mock/leavetype_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, req CreateLeaveTypeRequest) (LeaveTypeResponse, error)
	GetAll(ctx context.Context) ([]LeaveTypeResponse, error)
	ListAll(ctx context.Context) ([]LeaveType, error)
	GetByID(ctx context.Context, id string) (*LeaveType, error)
	SeedDefaults(ctx context.Context) error
}

type service struct {
	repo   Repository
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewService(repo Repository, rdb *redis.Client, logger ...*zap.Logger) Service {
	l := zap.L().Named("leavetype.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leavetype.service")
	}
	return &service{repo: repo, rdb: rdb, sf: &singleflight.Group{}, logger: l}
}

func (s *service) Create(ctx context.Context, req CreateLeaveTypeRequest) (LeaveTypeResponse, error) {
	s.logger.Debug("create leave type requested", zap.String("name", req.Name))

	if _, err := s.repo.FindByName(ctx, req.Name); err == nil {
		return LeaveTypeResponse{}, leavetypeerrors.ErrLeaveTypeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("create leave type lookup failed", zap.Error(err))
		return LeaveTypeResponse{}, err
	}

	lt := &LeaveType{
		ID:                uuid.New(),
		Name:              req.Name,
		DefaultAllocation: decimal.NewFromFloat(req.DefaultAllocation),
		AccrualEligible:   req.AccrualEligible,
	}

	if err := s.repo.Create(ctx, lt); err != nil {
		s.logger.Error("create leave type persist failed", zap.Error(err))
		return LeaveTypeResponse{}, mapRepositoryError(err)
	}

	s.invalidateCache(ctx)
	s.logger.Info("create leave type success",
		zap.String("leave_type_id", lt.ID.String()),
		zap.String("name", lt.Name),
	)

	return mapToResponse(*lt), nil
}

func (s *service) GetAll(ctx context.Context) ([]LeaveTypeResponse, error) {
	types, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(types), nil
}

// ListAll returns the full catalog, serving from redis when possible.
// Concurrent cache misses collapse into a single DB read.
func (s *service) ListAll(ctx context.Context) ([]LeaveType, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, catalogCacheKey).Result(); err == nil {
			var types []LeaveType
			if json.Unmarshal([]byte(cached), &types) == nil {
				return types, nil
			}
		}
	}

	v, err, _ := s.sf.Do(catalogCacheKey, func() (any, error) {
		types, err := s.repo.FindAll(ctx)
		if err != nil {
			return nil, err
		}

		if s.rdb != nil {
			if payload, err := json.Marshal(types); err == nil {
				if err := s.rdb.Set(ctx, catalogCacheKey, payload, 10*time.Minute).Err(); err != nil {
					s.logger.Warn("cache leave type catalog failed", zap.Error(err))
				}
			}
		}

		return types, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]LeaveType), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*LeaveType, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, leavetypeerrors.ErrInvalidLeaveTypeID
	}

	lt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, leavetypeerrors.ErrLeaveTypeNotFound
		}
		return nil, err
	}
	return lt, nil
}

// SeedDefaults inserts the standard catalog on first boot. Existing
// names are left untouched.
func (s *service) SeedDefaults(ctx context.Context) error {
	defaults := []LeaveType{
		{Name: "Annual Leave", DefaultAllocation: decimal.NewFromInt(20), AccrualEligible: true},
		{Name: "Personal Time Off", DefaultAllocation: decimal.NewFromInt(5), AccrualEligible: true},
		{Name: "Sick Leave", DefaultAllocation: decimal.NewFromInt(10), AccrualEligible: false},
		{Name: "Maternity Leave", DefaultAllocation: decimal.NewFromInt(90), AccrualEligible: false},
		{Name: "Compassionate Leave", DefaultAllocation: decimal.NewFromInt(3), AccrualEligible: false},
	}

	for _, d := range defaults {
		if _, err := s.repo.FindByName(ctx, d.Name); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		lt := d
		lt.ID = uuid.New()
		if err := s.repo.Create(ctx, &lt); err != nil {
			s.logger.Error("seed leave type failed", zap.String("name", lt.Name), zap.Error(err))
			return err
		}
		s.logger.Info("seeded leave type", zap.String("name", lt.Name))
	}

	s.invalidateCache(ctx)
	return nil
}

func (s *service) invalidateCache(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, catalogCacheKey).Err(); err != nil {
		s.logger.Error("failed to invalidate leave type catalog cache",
			zap.Error(err),
			zap.String("key", catalogCacheKey),
		)
	}
}

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return leavetypeerrors.ErrLeaveTypeExists
	}

	if strings.Contains(strings.ToLower(err.Error()), "duplicate key value") {
		return leavetypeerrors.ErrLeaveTypeExists
	}

	return err
}

func mapToResponse(lt LeaveType) LeaveTypeResponse {
	return LeaveTypeResponse{
		ID:                lt.ID.String(),
		Name:              lt.Name,
		DefaultAllocation: days.Format(lt.DefaultAllocation),
		AccrualEligible:   lt.AccrualEligible,
	}
}

func mapToListResponse(types []LeaveType) []LeaveTypeResponse {
	resp := make([]LeaveTypeResponse, len(types))
	for i, lt := range types {
		resp[i] = mapToResponse(lt)
	}
	return resp
}
