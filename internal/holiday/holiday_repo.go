package holiday

import (
	"context"
	"time"

	"gorm.io/gorm"
)

//go:generate mockgen -source=holiday_repo.go -destination=mock/holiday_repo_mock.go -package=mock
type Repository interface {
	Create(ctx context.Context, h *PublicHoliday) error
	FindBetween(ctx context.Context, start, end time.Time) ([]PublicHoliday, error)
	FindAfter(ctx context.Context, after time.Time) ([]PublicHoliday, error)
	ExistsOnDate(ctx context.Context, date time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, h *PublicHoliday) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *repository) FindBetween(ctx context.Context, start, end time.Time) ([]PublicHoliday, error) {
	var holidays []PublicHoliday
	err := r.db.WithContext(ctx).
		Where("date BETWEEN ? AND ?", start, end).
		Order("date ASC").
		Find(&holidays).Error
	return holidays, err
}

func (r *repository) FindAfter(ctx context.Context, after time.Time) ([]PublicHoliday, error) {
	var holidays []PublicHoliday
	err := r.db.WithContext(ctx).
		Where("date > ?", after).
		Order("date ASC").
		Find(&holidays).Error
	return holidays, err
}

func (r *repository) ExistsOnDate(ctx context.Context, date time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&PublicHoliday{}).
		Where("date = ?", date).
		Count(&count).Error
	return count > 0, err
}
