package leavetype

type CreateLeaveTypeRequest struct {
	Name              string  `json:"name" binding:"required"`
	DefaultAllocation float64 `json:"default_allocation" binding:"required,gt=0"`
	AccrualEligible   bool    `json:"accrual_eligible"`
}

type LeaveTypeResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	DefaultAllocation string `json:"default_allocation"`
	AccrualEligible   bool   `json:"accrual_eligible"`
}
