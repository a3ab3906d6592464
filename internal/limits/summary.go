package limits

import (
	"github.com/shopspring/decimal"

	"limitguard/internal/domain"
)

var twelve = decimal.NewFromInt(12)

// Summary is the per-month aggregation of one tenant/year document set.
type Summary struct {
	// MonthlyTotals holds an entry only for months with at least one document.
	MonthlyTotals map[int]decimal.Decimal
	Forecast      decimal.Decimal
	// Skipped counts documents without a usable issue date in the year.
	Skipped int
}

// Summarize sums totals.gross_amount per calendar month of year. A dated
// document with no amount still marks its month as present.
func Summarize(docs []domain.Document, year int) Summary {
	s := Summary{MonthlyTotals: make(map[int]decimal.Decimal)}
	for i := range docs {
		issued, ok := docs[i].IssueTime()
		if !ok || issued.Year() != year {
			s.Skipped++
			continue
		}
		month := int(issued.Month())
		amount, ok := docs[i].GrossAmount()
		if !ok {
			amount = decimal.Zero
		}
		s.MonthlyTotals[month] = s.MonthlyTotals[month].Add(amount)
	}
	s.Forecast = Forecast(s.MonthlyTotals)
	return s
}

// Forecast is 12 times the mean of the present monthly totals, or zero when
// no month has data.
func Forecast(monthly map[int]decimal.Decimal) decimal.Decimal {
	if len(monthly) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range monthly {
		sum = sum.Add(v)
	}
	return sum.Mul(twelve).Div(decimal.NewFromInt(int64(len(monthly))))
}

// Total is the sum of all monthly totals.
func (s Summary) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s.MonthlyTotals {
		total = total.Add(v)
	}
	return total
}
