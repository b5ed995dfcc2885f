// Package aggregate turns flat collection histories into grouped totals.
// Every function here is pure and total: malformed input degrades to zero
// contributions, nothing panics and nothing returns an error.
package aggregate

import (
	"math"
	"strconv"
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"

	"github.com/shopspring/decimal"
)

// Placeholder is shown wherever a derived figure cannot be computed.
const Placeholder = "-"

// FieldFunc selects a numeric field from a record.
type FieldFunc func(domain.CollectionRecord) float64

// Amount selects the collected amount.
func Amount(r domain.CollectionRecord) float64 { return r.Amount }

// Penalty selects the penalty amount.
func Penalty(r domain.CollectionRecord) float64 { return r.Penalty }

// Bucket groups the records that share a period key.
type Bucket struct {
	Key     string
	Records []domain.CollectionRecord
	Amount  float64
	Penalty float64
}

// FilterByDateRange keeps records collected within [From-1d, To+1d].
// The one-day padding on both sides matches what the dashboard has always shown.
// An open bound does not filter on that side.
func FilterByDateRange(records []domain.CollectionRecord, dr domain.DateRange) []domain.CollectionRecord {
	out := make([]domain.CollectionRecord, 0, len(records))

	var lo, hi time.Time
	if dr.From != nil {
		lo = dr.From.AddDate(0, 0, -1)
	}
	if dr.To != nil {
		hi = dr.To.AddDate(0, 0, 1)
	}

	for _, r := range records {
		if dr.From != nil && r.CollectedAt.Before(lo) {
			continue
		}
		if dr.To != nil && r.CollectedAt.After(hi) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// GroupByPeriod groups records by key. Buckets come out in first-seen order,
// not sorted; statement sections are rendered in exactly this order.
func GroupByPeriod(records []domain.CollectionRecord, key KeyFunc) []Bucket {
	index := make(map[string]int)
	buckets := make([]Bucket, 0)

	for _, r := range records {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, Bucket{Key: k})
		}
		buckets[i].Records = append(buckets[i].Records, r)
	}

	for i := range buckets {
		buckets[i].Amount = SumField(buckets[i].Records, Amount)
		buckets[i].Penalty = SumField(buckets[i].Records, Penalty)
	}
	return buckets
}

// SumField sums a field across records. NaN and infinite values count as zero.
func SumField(records []domain.CollectionRecord, field FieldFunc) float64 {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(toDecimal(field(r)))
	}
	return sum.InexactFloat64()
}

// Totals is the ungrouped sum of a record list.
type Totals struct {
	Count   int
	Amount  float64
	Penalty float64
}

// Total sums amount and penalty across records.
func Total(records []domain.CollectionRecord) Totals {
	return Totals{
		Count:   len(records),
		Amount:  SumField(records, Amount),
		Penalty: SumField(records, Penalty),
	}
}

// RemainingInstallments returns ceil(totalDue / installment).
// ok is false when the installment is zero, negative or not a number, or when
// the count does not fit in an int64;
// callers must show Placeholder instead of the value.
func RemainingInstallments(totalDue, installment float64) (n int64, ok bool) {
	if !finite(installment) || installment <= 0 || !finite(totalDue) {
		return 0, false
	}
	if totalDue <= 0 {
		return 0, true
	}
	q := decimal.NewFromFloat(totalDue).Div(decimal.NewFromFloat(installment)).Ceil()
	if q.GreaterThan(maxInstallments) {
		return 0, false
	}
	return q.IntPart(), true
}

var maxInstallments = decimal.NewFromInt(math.MaxInt64)

// FormatInstallments renders a RemainingInstallments result for display.
func FormatInstallments(n int64, ok bool) string {
	if !ok {
		return Placeholder
	}
	return strconv.FormatInt(n, 10)
}

// SavingsRatePct is the flat return of the 120-day saving product.
const SavingsRatePct = 5.0

// ProjectedMaturity is principal plus a flat rate% of principal, rounded to
// two decimals. The rate is not prorated by elapsed time.
func ProjectedMaturity(principal, ratePct float64) float64 {
	p := toDecimal(principal)
	interest := p.Mul(toDecimal(ratePct)).Div(decimal.NewFromInt(100))
	return p.Add(interest).Round(2).InexactFloat64()
}

// SavingsProjection projects the maturity amount of a saving account. The
// principal is the account amount when the backend reports one, otherwise the
// deposits collected so far; the rate falls back to SavingsRatePct.
func SavingsProjection(a domain.AccountSnapshot, collected float64) float64 {
	principal := a.LoanAmount
	if principal <= 0 {
		principal = collected
	}
	rate := a.InterestRate
	if rate <= 0 {
		rate = SavingsRatePct
	}
	return ProjectedMaturity(principal, rate)
}

func toDecimal(v float64) decimal.Decimal {
	if !finite(v) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
