package leavetype

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LeaveType struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name              string          `gorm:"type:varchar(60);not null;uniqueIndex:uq_leave_type_name"`
	DefaultAllocation decimal.Decimal `gorm:"type:numeric(5,1);not null"`
	AccrualEligible   bool            `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveType) TableName() string {
	return "leave_types"
}
