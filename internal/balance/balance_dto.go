package balance

type AdjustBalanceRequest struct {
	// Exactly one of the three fields must be set per request.
	DefaultAllocation *float64 `json:"default_allocation"`
	UsedDays          *float64 `json:"used_days"`
	CarryOver         *float64 `json:"carry_over"`
}

type LeaveBalanceResponse struct {
	LeaveTypeID       string `json:"leave_type_id"`
	LeaveType         string `json:"leave_type"`
	Year              int    `json:"year"`
	DefaultAllocation string `json:"default_allocation"`
	CarryOver         string `json:"carry_over"`
	UsedDays          string `json:"used_days"`
	RemainingDays     string `json:"remaining_days"`
	ManuallyAdjusted  bool   `json:"manually_adjusted"`
}

// BatchResult reports how a scheduled batch run went. One row failing
// never aborts the batch; failures are only counted and logged.
type BatchResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
