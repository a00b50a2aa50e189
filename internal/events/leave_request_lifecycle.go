package events

import "time"

const LeaveRequestLifecycleTopic = "hr.leave.request.lifecycle.v1"

const (
	LeaveRequestSubmitted = "leave_request_submitted"
	LeaveRequestApproved  = "leave_request_approved"
	LeaveRequestRejected  = "leave_request_rejected"
)

type LeaveRequestLifecycleEvent struct {
	EventType       string    `json:"event_type"`
	RequestID       string    `json:"request_id"`
	LeaveRequestID  string    `json:"leave_request_id"`
	UserID          string    `json:"user_id"`
	LeaveType       string    `json:"leave_type"`
	StartDate       string    `json:"start_date"`
	EndDate         string    `json:"end_date"`
	Status          string    `json:"status"`
	ApproverComment string    `json:"approver_comment,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
