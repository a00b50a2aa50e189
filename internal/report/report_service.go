package report

import (
	"context"
	"strings"

	"github.com/Christabll/IST-LeaveManagementService/internal/businessday"
	"github.com/Christabll/IST-LeaveManagementService/internal/holiday"
	"github.com/Christabll/IST-LeaveManagementService/internal/shared/days"
	"github.com/Christabll/IST-LeaveManagementService/internal/userdir"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:generate mockgen -source=report_service.go -destination=mock/report_service_mock.go -package=mock
type Service interface {
	LeaveReport(ctx context.Context, filters Filters) ([]Entry, error)
}

type service struct {
	repo     Repository
	holidays holiday.Service
	users    userdir.Client
	logger   *zap.Logger
}

func NewService(repo Repository, holidays holiday.Service, users userdir.Client, logger ...*zap.Logger) Service {
	l := zap.L().Named("report.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("report.service")
	}
	return &service{repo: repo, holidays: holidays, users: users, logger: l}
}

const dateLayout = "2006-01-02"

// LeaveReport flattens requests into report entries. Directory lookups
// are best-effort; a row is never dropped because the directory is
// down, only its name and department stay empty.
func (s *service) LeaveReport(ctx context.Context, filters Filters) ([]Entry, error) {
	rows, err := s.repo.FindRequests(ctx, filters)
	if err != nil {
		return nil, err
	}

	names := map[string]string{}
	departments := map[string]string{}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entry := Entry{
			Reference: row.Reference,
			UserID:    row.UserID,
			LeaveType: row.LeaveTypeName,
			StartDate: row.StartDate.Format(dateLayout),
			EndDate:   row.EndDate.Format(dateLayout),
			Status:    row.Status,
			Reason:    row.Reason,
		}

		if _, ok := names[row.UserID]; !ok {
			name, err := s.users.GetUserFullName(ctx, row.UserID)
			if err != nil {
				s.logger.Warn("report name lookup failed",
					zap.String("user_id", row.UserID),
					zap.Error(err),
				)
			}
			names[row.UserID] = name

			department, err := s.users.GetUserDepartment(ctx, row.UserID)
			if err != nil {
				department = ""
			}
			departments[row.UserID] = department
		}
		entry.FullName = names[row.UserID]
		entry.Department = departments[row.UserID]

		if filters.Department != "" && !strings.EqualFold(entry.Department, filters.Department) {
			continue
		}

		hs, err := s.holidays.Between(ctx, row.StartDate, row.EndDate)
		if err != nil {
			return nil, err
		}
		count, err := businessday.Count(row.StartDate, row.EndDate, hs)
		if err != nil {
			s.logger.Warn("report day count failed",
				zap.String("reference", row.Reference),
				zap.Error(err),
			)
			count = 0
		}
		entry.BusinessDays = days.Format(decimal.NewFromInt(int64(count)))

		entries = append(entries, entry)
	}

	return entries, nil
}
