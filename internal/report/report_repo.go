package report

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Row is the flattened request/type projection the report is built
// from.
type Row struct {
	Reference     string
	UserID        string
	LeaveTypeName string
	StartDate     time.Time
	EndDate       time.Time
	Status        string
	Reason        string
}

//go:generate mockgen -source=report_repo.go -destination=mock/report_repo_mock.go -package=mock
type Repository interface {
	FindRequests(ctx context.Context, filters Filters) ([]Row, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindRequests(ctx context.Context, filters Filters) ([]Row, error) {
	query := r.db.WithContext(ctx).
		Table("leave_requests AS lr").
		Select(`lr.reference,
			lr.user_id::text AS user_id,
			t.name AS leave_type_name,
			lr.start_date,
			lr.end_date,
			lr.status,
			COALESCE(lr.reason, '') AS reason`).
		Joins("JOIN leave_types t ON t.id = lr.leave_type_id").
		Order("lr.start_date DESC")

	if filters.Status != "" {
		query = query.Where("lr.status = ?", filters.Status)
	}
	if filters.LeaveTypeID != "" {
		query = query.Where("lr.leave_type_id = ?", filters.LeaveTypeID)
	}
	if !filters.From.IsZero() {
		query = query.Where("lr.end_date >= ?", filters.From)
	}
	if !filters.To.IsZero() {
		query = query.Where("lr.start_date <= ?", filters.To)
	}

	var rows []Row
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
