package aggregate_test

import (
	"math"
	"testing"
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/aggregate"
	"github.com/boddenberg/mfi-statements-bfa/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.Local)
}

func rec(id string, amount, penalty float64, at time.Time) domain.CollectionRecord {
	return domain.CollectionRecord{ID: id, Amount: amount, Penalty: penalty, CollectedAt: at}
}

func sample() []domain.CollectionRecord {
	return []domain.CollectionRecord{
		rec("1", 500, 0, day(2024, time.March, 4)),
		rec("2", 250.25, 10, day(2024, time.January, 15)),
		rec("3", 500, 0, day(2024, time.March, 11)),
		rec("4", 0.1, 0.2, day(2024, time.February, 1)),
		rec("5", 1200, 50, day(2023, time.December, 30)),
	}
}

func TestGroupByPeriod_SumInvariant(t *testing.T) {
	records := sample()

	for name, key := range map[string]aggregate.KeyFunc{
		"month":   aggregate.MonthKey,
		"year":    aggregate.YearKey,
		"weekday": aggregate.WeekdayKey,
		"day":     aggregate.DayKey,
	} {
		t.Run(name, func(t *testing.T) {
			buckets := aggregate.GroupByPeriod(records, key)

			var amount, penalty float64
			members := 0
			for _, b := range buckets {
				amount += b.Amount
				penalty += b.Penalty
				members += len(b.Records)
			}
			assert.Equal(t, len(records), members)
			assert.InDelta(t, aggregate.SumField(records, aggregate.Amount), amount, 1e-9)
			assert.InDelta(t, aggregate.SumField(records, aggregate.Penalty), penalty, 1e-9)
		})
	}
}

func TestGroupByPeriod_FirstSeenOrder(t *testing.T) {
	records := []domain.CollectionRecord{
		rec("a", 1, 0, day(2024, time.March, 1)),
		rec("b", 1, 0, day(2024, time.January, 1)),
		rec("c", 1, 0, day(2024, time.March, 20)),
		rec("d", 1, 0, day(2024, time.February, 1)),
	}

	buckets := aggregate.GroupByPeriod(records, aggregate.MonthKey)

	keys := make([]string, 0, len(buckets))
	for _, b := range buckets {
		keys = append(keys, b.Key)
	}
	assert.Equal(t, []string{"March 2024", "January 2024", "February 2024"}, keys)
	assert.Len(t, buckets[0].Records, 2)
	assert.Equal(t, 2.0, buckets[0].Amount)
}

func TestGroupByPeriod_Empty(t *testing.T) {
	buckets := aggregate.GroupByPeriod(nil, aggregate.MonthKey)
	assert.NotNil(t, buckets)
	assert.Empty(t, buckets)
}

func TestGroupByPeriod_MissingTimestamp(t *testing.T) {
	buckets := aggregate.GroupByPeriod([]domain.CollectionRecord{{ID: "x", Amount: 5}}, aggregate.YearKey)
	require.Len(t, buckets, 1)
	assert.Equal(t, aggregate.UnknownPeriod, buckets[0].Key)
}

func TestFilterByDateRange_Padding(t *testing.T) {
	from := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.Local)
	to := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)

	records := []domain.CollectionRecord{
		rec("before-pad", 1, 0, time.Date(2024, time.March, 8, 23, 0, 0, 0, time.Local)),
		rec("in-pad-low", 1, 0, time.Date(2024, time.March, 9, 0, 0, 0, 0, time.Local)),
		rec("inside", 1, 0, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.Local)),
		rec("in-pad-high", 1, 0, time.Date(2024, time.March, 21, 0, 0, 0, 0, time.Local)),
		rec("after-pad", 1, 0, time.Date(2024, time.March, 21, 0, 0, 1, 0, time.Local)),
	}

	out := aggregate.FilterByDateRange(records, domain.DateRange{From: &from, To: &to})

	ids := make([]string, 0, len(out))
	for _, r := range out {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"in-pad-low", "inside", "in-pad-high"}, ids)
}

func TestFilterByDateRange_OpenBounds(t *testing.T) {
	records := sample()

	assert.Len(t, aggregate.FilterByDateRange(records, domain.DateRange{}), len(records))

	from := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.Local)
	out := aggregate.FilterByDateRange(records, domain.DateRange{From: &from})
	assert.Len(t, out, 2)
}

func TestFilterByDateRange_NoMatch(t *testing.T) {
	from := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.Local)
	out := aggregate.FilterByDateRange(sample(), domain.DateRange{From: &from})
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestFilterByDateRange_Idempotent(t *testing.T) {
	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2024, time.February, 28, 0, 0, 0, 0, time.Local)
	dr := domain.DateRange{From: &from, To: &to}

	once := aggregate.FilterByDateRange(sample(), dr)
	twice := aggregate.FilterByDateRange(once, dr)
	assert.Equal(t, once, twice)
}

func TestSumField_IgnoresNonFinite(t *testing.T) {
	records := []domain.CollectionRecord{
		{Amount: 10},
		{Amount: math.NaN()},
		{Amount: math.Inf(1)},
		{Amount: 0.1},
		{Amount: 0.2},
	}
	assert.Equal(t, 10.3, aggregate.SumField(records, aggregate.Amount))
	assert.Equal(t, 0.0, aggregate.SumField(nil, aggregate.Amount))
}

func TestTotal(t *testing.T) {
	tot := aggregate.Total(sample())
	assert.Equal(t, 5, tot.Count)
	assert.Equal(t, 2450.35, tot.Amount)
	assert.Equal(t, 60.2, tot.Penalty)
}

func TestRemainingInstallments(t *testing.T) {
	n, ok := aggregate.RemainingInstallments(1000, 300)
	assert.True(t, ok)
	assert.Equal(t, int64(4), n)

	n, ok = aggregate.RemainingInstallments(900, 300)
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)

	n, ok = aggregate.RemainingInstallments(0, 300)
	assert.True(t, ok)
	assert.Zero(t, n)
}

func TestRemainingInstallments_ZeroDivision(t *testing.T) {
	for _, per := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		n, ok := aggregate.RemainingInstallments(1000, per)
		assert.False(t, ok)
		assert.Zero(t, n)
		assert.Equal(t, aggregate.Placeholder, aggregate.FormatInstallments(n, ok))
	}
}

func TestRemainingInstallments_Overflow(t *testing.T) {
	n, ok := aggregate.RemainingInstallments(1e20, 1)
	assert.False(t, ok)
	assert.Zero(t, n)

	n, ok = aggregate.RemainingInstallments(1e15, 1)
	assert.True(t, ok)
	assert.Equal(t, int64(1e15), n)
}

func TestProjectedMaturity(t *testing.T) {
	assert.Equal(t, 1050.0, aggregate.ProjectedMaturity(1000, 5))
	assert.Equal(t, 0.0, aggregate.ProjectedMaturity(0, 5))
	assert.Equal(t, 1296.23, aggregate.ProjectedMaturity(1234.50, aggregate.SavingsRatePct))
	assert.Equal(t, 0.0, aggregate.ProjectedMaturity(math.NaN(), 5))
}

func TestParseGroupBy(t *testing.T) {
	name, fn, err := aggregate.ParseGroupBy("")
	require.NoError(t, err)
	assert.Equal(t, "month", name)
	assert.Equal(t, "March 2024", fn(rec("x", 0, 0, day(2024, time.March, 2))))

	name, fn, err = aggregate.ParseGroupBy("Agent")
	require.NoError(t, err)
	assert.Equal(t, "agent", name)
	assert.Equal(t, aggregate.UnassignedAgent, fn(domain.CollectionRecord{}))
	assert.Equal(t, "Ravi", fn(domain.CollectionRecord{AgentID: "o1", AgentName: "Ravi"}))

	_, _, err = aggregate.ParseGroupBy("quarter")
	var verr *domain.ErrValidation
	assert.ErrorAs(t, err, &verr)
}

func TestSavingsProjection(t *testing.T) {
	assert.Equal(t, 2100.0, aggregate.SavingsProjection(domain.AccountSnapshot{LoanAmount: 2000}, 150))
	assert.Equal(t, 157.5, aggregate.SavingsProjection(domain.AccountSnapshot{}, 150))
	assert.Equal(t, 1100.0, aggregate.SavingsProjection(domain.AccountSnapshot{LoanAmount: 1000, InterestRate: 10}, 0))
}
