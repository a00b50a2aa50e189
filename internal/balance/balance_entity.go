package balance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeaveBalance is the per-(user, leave type, year) entitlement row.
// RemainingDays is a cached derived value; Recompute must run before
// the row is stored or compared against requested days.
type LeaveBalance struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_leave_balance_user_type_year"`
	LeaveTypeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_leave_balance_user_type_year"`
	Year        int       `gorm:"not null;uniqueIndex:uq_leave_balance_user_type_year"`

	DefaultAllocation decimal.Decimal `gorm:"type:numeric(6,2);not null"`
	CarryOver         decimal.Decimal `gorm:"type:numeric(6,2);not null"`
	UsedDays          decimal.Decimal `gorm:"type:numeric(6,2);not null"`
	RemainingDays     decimal.Decimal `gorm:"type:numeric(6,2);not null"`
	ManuallyAdjusted  bool            `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveBalance) TableName() string {
	return "leave_balances"
}

// Recompute refreshes the cached RemainingDays from the authoritative
// fields.
func (b *LeaveBalance) Recompute() {
	b.RemainingDays = b.DefaultAllocation.Add(b.CarryOver).Sub(b.UsedDays)
}

// BalanceRow is a ledger row joined with its leave type attributes,
// used by batch jobs and read paths.
type BalanceRow struct {
	LeaveBalance
	LeaveTypeName   string
	AccrualEligible bool
}
