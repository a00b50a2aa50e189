package leave

type ApplyLeaveRequest struct {
	LeaveTypeID string `json:"leave_type_id" binding:"required,uuid"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
	Reason      string `json:"reason" binding:"max=500"`
	DocumentURL string `json:"document_url" binding:"omitempty,url,max=500"`
}

type DecisionRequest struct {
	Comment string `json:"comment" binding:"max=500"`
}

type LeaveRequestResponse struct {
	ID              string `json:"id"`
	Reference       string `json:"reference"`
	UserID          string `json:"user_id"`
	LeaveType       string `json:"leave_type"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	BusinessDays    string `json:"business_days,omitempty"`
	Reason          string `json:"reason,omitempty"`
	DocumentURL     string `json:"document_url,omitempty"`
	Status          string `json:"status"`
	ApproverComment string `json:"approver_comment,omitempty"`
	CreatedAt       string `json:"created_at"`
}

type TeamOnLeaveEntry struct {
	UserID    string `json:"user_id"`
	FullName  string `json:"full_name,omitempty"`
	LeaveType string `json:"leave_type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}
