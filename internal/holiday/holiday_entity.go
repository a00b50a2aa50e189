package holiday

import (
	"time"
)

type PublicHoliday struct {
	ID   int64     `gorm:"primaryKey;autoIncrement"`
	Name string    `gorm:"type:varchar(120);not null"`
	Date time.Time `gorm:"type:date;not null;uniqueIndex:uq_public_holiday_date"`

	CreatedAt time.Time
}

func (PublicHoliday) TableName() string {
	return "public_holidays"
}
