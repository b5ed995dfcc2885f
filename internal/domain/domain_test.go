package domain_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNormalizeAccount_DefaultsEndDate(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	s := domain.NormalizeAccount(domain.AccountInput{
		ID:         "loan-1",
		Kind:       domain.KindLoan,
		HolderName: "  Asha Devi ",
		LoanAmount: ptr(10000.0),
		StartDate:  &start,
	})

	assert.Equal(t, "Asha Devi", s.HolderName)
	assert.Equal(t, 10000.0, s.LoanAmount)
	assert.Equal(t, start.AddDate(0, 0, 120), s.EndDate)
	assert.Zero(t, s.TotalDue)
	assert.Zero(t, s.InstallmentAmount)
}

func TestNormalizeAccount_KeepsExplicitEndDate(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	s := domain.NormalizeAccount(domain.AccountInput{StartDate: &start, EndDate: &end})
	assert.Equal(t, end, s.EndDate)
}

func TestNormalizeAccount_NoStartDate(t *testing.T) {
	s := domain.NormalizeAccount(domain.AccountInput{ID: "x"})
	assert.True(t, s.StartDate.IsZero())
	assert.True(t, s.EndDate.IsZero())
}

func TestNormalizeCollection_ZeroesBadNumbers(t *testing.T) {
	r := domain.NormalizeCollection(domain.CollectionInput{
		ID:      "c1",
		Amount:  ptr(math.NaN()),
		Penalty: nil,
	})
	assert.Zero(t, r.Amount)
	assert.Zero(t, r.Penalty)
	assert.True(t, r.CollectedAt.IsZero())
}

func TestParseDateRange(t *testing.T) {
	dr, err := domain.ParseDateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.True(t, dr.Bounded())
	assert.Equal(t, "2024-01-31", dr.To.Format(domain.DateLayout))

	open, err := domain.ParseDateRange("", "")
	require.NoError(t, err)
	assert.True(t, open.IsZero())
}

func TestParseDateRange_EndBeforeStart(t *testing.T) {
	_, err := domain.ParseDateRange("2024-02-01", "2024-01-01")
	var verr *domain.ErrValidation
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "to", verr.Field)
}

func TestParseDateRange_BadFormat(t *testing.T) {
	_, err := domain.ParseDateRange("01/02/2024", "")
	var verr *domain.ErrValidation
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "from", verr.Field)
}

func TestParseAccountKind(t *testing.T) {
	k, err := domain.ParseAccountKind("savings")
	require.NoError(t, err)
	assert.Equal(t, domain.KindSaving, k)
	assert.Equal(t, "Saving", k.DocumentType())

	k, err = domain.ParseAccountKind("loans")
	require.NoError(t, err)
	assert.Equal(t, "Loan", k.DocumentType())

	_, err = domain.ParseAccountKind("cards")
	assert.Error(t, err)
}
