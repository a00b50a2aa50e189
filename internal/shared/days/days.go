package days

import "github.com/shopspring/decimal"

// Format renders a day amount with no decimals when whole and one
// decimal place otherwise ("15", "11.7"). Display formatting only;
// arithmetic and comparisons always use the exact decimal values.
func Format(d decimal.Decimal) string {
	if d.IsInteger() {
		return d.StringFixed(0)
	}
	return d.StringFixed(1)
}
