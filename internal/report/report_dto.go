package report

import "time"

// Filters narrows the leave report. Department filtering happens after
// directory enrichment since departments live outside this service.
type Filters struct {
	Status      string
	LeaveTypeID string
	Department  string
	From        time.Time
	To          time.Time
}

type Entry struct {
	Reference    string `json:"reference"`
	UserID       string `json:"user_id"`
	FullName     string `json:"full_name,omitempty"`
	Department   string `json:"department,omitempty"`
	LeaveType    string `json:"leave_type"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	BusinessDays string `json:"business_days"`
	Status       string `json:"status"`
	Reason       string `json:"reason,omitempty"`
}
