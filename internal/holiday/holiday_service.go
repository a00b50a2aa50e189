package holiday

import (
	"context"
	"time"

	"github.com/Christabll/IST-LeaveManagementService/internal/businessday"

	"go.uber.org/zap"
)

//go:generate mockgen -source=holiday_service.go -destination=mock/holiday_service_mock.go -package=mock
type Service interface {
	// Between returns the declared public holidays inside the inclusive
	// date range as a set consumable by the business-day calculator.
	Between(ctx context.Context, start, end time.Time) (businessday.HolidaySet, error)
	Upcoming(ctx context.Context) ([]PublicHolidayResponse, error)
	SeedDefaults(ctx context.Context, year int) error
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("holiday.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("holiday.service")
	}
	return &service{repo: repo, logger: l}
}

func (s *service) Between(ctx context.Context, start, end time.Time) (businessday.HolidaySet, error) {
	holidays, err := s.repo.FindBetween(ctx, start, end)
	if err != nil {
		s.logger.Error("find holidays between failed", zap.Error(err))
		return nil, err
	}

	dates := make([]time.Time, len(holidays))
	for i, h := range holidays {
		dates[i] = h.Date
	}
	return businessday.NewHolidaySet(dates...), nil
}

func (s *service) Upcoming(ctx context.Context) ([]PublicHolidayResponse, error) {
	holidays, err := s.repo.FindAfter(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	resp := make([]PublicHolidayResponse, len(holidays))
	for i, h := range holidays {
		resp[i] = PublicHolidayResponse{
			Name: h.Name,
			Date: h.Date.Format("2006-01-02"),
		}
	}
	return resp, nil
}

// SeedDefaults inserts the fixed national holidays for a year when not
// already present.
func (s *service) SeedDefaults(ctx context.Context, year int) error {
	fixed := []struct {
		name  string
		month time.Month
		day   int
	}{
		{"New Year's Day", time.January, 1},
		{"Labour Day", time.May, 1},
		{"Independence Day", time.July, 4},
		{"Christmas Day", time.December, 25},
		{"Boxing Day", time.December, 26},
	}

	for _, f := range fixed {
		date := time.Date(year, f.month, f.day, 0, 0, 0, 0, time.UTC)

		exists, err := s.repo.ExistsOnDate(ctx, date)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		if err := s.repo.Create(ctx, &PublicHoliday{Name: f.name, Date: date}); err != nil {
			s.logger.Error("seed public holiday failed",
				zap.String("name", f.name),
				zap.Error(err),
			)
			return err
		}
		s.logger.Info("seeded public holiday",
			zap.String("name", f.name),
			zap.String("date", date.Format("2006-01-02")),
		)
	}

	return nil
}
