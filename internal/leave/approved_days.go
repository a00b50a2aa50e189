package leave

import (
	"context"
	"time"

	"github.com/Christabll/IST-LeaveManagementService/internal/businessday"
	"github.com/Christabll/IST-LeaveManagementService/internal/holiday"

	"github.com/shopspring/decimal"
)

// ApprovedDaysCounter totals the business days consumed by approved
// requests, so the ledger can reconcile its used-days column against
// the request history. It satisfies the balance package's source
// interface without the balance package importing request storage.
type ApprovedDaysCounter struct {
	repo     Repository
	holidays holiday.Service
}

func NewApprovedDaysCounter(repo Repository, holidays holiday.Service) *ApprovedDaysCounter {
	return &ApprovedDaysCounter{repo: repo, holidays: holidays}
}

func (c *ApprovedDaysCounter) ApprovedDays(ctx context.Context, userID, leaveTypeID string, year int) (decimal.Decimal, error) {
	requests, err := c.repo.FindApprovedByUserTypeYear(ctx, userID, leaveTypeID, year)
	if err != nil {
		return decimal.Zero, err
	}

	yearEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	total := decimal.Zero
	for _, req := range requests {
		end := req.EndDate
		// A request spilling into January only consumes this year's
		// balance up to December 31st.
		if end.After(yearEnd) {
			end = yearEnd
		}

		hs, err := c.holidays.Between(ctx, req.StartDate, end)
		if err != nil {
			return decimal.Zero, err
		}

		days, err := businessday.Count(req.StartDate, end, hs)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(decimal.NewFromInt(int64(days)))
	}

	return total, nil
}
