package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Interest convention constants
const (
	ConventionReducingBalance  = "reducing_balance"
	ConventionFlatRate         = "flat_rate"
	ConventionDecliningBalance = "declining_balance"
)

// ValidConvention reports whether c names a supported interest convention
func ValidConvention(c string) bool {
	switch c {
	case ConventionReducingBalance, ConventionFlatRate, ConventionDecliningBalance:
		return true
	}
	return false
}

// ScheduleEntry is one row of a generated amortization schedule.
// Entries are plain records; downstream export consumes them as-is.
type ScheduleEntry struct {
	Number             int             `json:"number"`
	DueDate            time.Time       `json:"due_date"`
	Principal          decimal.Decimal `json:"principal"`
	Interest           decimal.Decimal `json:"interest"`
	Payment            decimal.Decimal `json:"payment"`
	Balance            decimal.Decimal `json:"balance"`
	CumulativeInterest decimal.Decimal `json:"cumulative_interest"`
}
