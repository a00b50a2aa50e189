package leave

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// LeaveRequest is a single request moving through the
// PENDING -> APPROVED/REJECTED lifecycle. Approved and rejected are
// terminal; a decided request is never reopened.
type LeaveRequest struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Reference   string    `gorm:"size:20;not null;uniqueIndex:uq_leave_request_reference"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	LeaveTypeID uuid.UUID `gorm:"type:uuid;not null"`

	StartDate time.Time `gorm:"type:date;not null"`
	EndDate   time.Time `gorm:"type:date;not null"`

	Reason      string `gorm:"size:500"`
	DocumentURL string `gorm:"size:500"`

	Status          string `gorm:"size:20;not null;default:'PENDING';index"`
	ApproverComment string `gorm:"size:500"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

func (lr *LeaveRequest) IsDecided() bool {
	return lr.Status != StatusPending
}

// RequestRow is a request joined with its leave type name for read
// paths.
type RequestRow struct {
	LeaveRequest
	LeaveTypeName string
}
