package businessday

import (
	"net/http"
	"time"

	"github.com/Christabll/IST-LeaveManagementService/internal/shared/apperror"
)

var ErrInvalidRange = apperror.New(
	apperror.CodeInvalidInput,
	"start date must be before or equal end date",
	http.StatusBadRequest,
)

const dateLayout = "2006-01-02"

// HolidaySet holds declared public holidays keyed by calendar date.
type HolidaySet map[string]struct{}

func NewHolidaySet(dates ...time.Time) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set[d.Format(dateLayout)] = struct{}{}
	}
	return set
}

func (s HolidaySet) Contains(day time.Time) bool {
	_, ok := s[day.Format(dateLayout)]
	return ok
}

// Count returns the number of business days in the inclusive range
// [start, end]: calendar days that are neither Saturday, Sunday, nor a
// member of holidays. It is pure and holds no calendar state of its own.
func Count(start, end time.Time, holidays HolidaySet) (int, error) {
	start = truncateToDay(start)
	end = truncateToDay(end)

	if start.After(end) {
		return 0, ErrInvalidRange
	}

	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		if holidays.Contains(d) {
			continue
		}
		days++
	}

	return days, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
