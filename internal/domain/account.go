package domain

import (
	"strings"
	"time"
)

// DefaultTermDays is the loan/saving term applied when the backend omits an end date.
const DefaultTermDays = 120

// ============================================================
// Accounts
// ============================================================

// AccountKind distinguishes loan accounts from saving accounts.
type AccountKind string

const (
	KindLoan   AccountKind = "loan"
	KindSaving AccountKind = "saving"
)

// ParseAccountKind accepts both the singular and the plural route form.
func ParseAccountKind(s string) (AccountKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "loan", "loans":
		return KindLoan, nil
	case "saving", "savings":
		return KindSaving, nil
	}
	return "", &ErrValidation{Field: "kind", Message: "must be loans or savings"}
}

// DocumentType is the label used in statement titles and filenames.
func (k AccountKind) DocumentType() string {
	if k == KindSaving {
		return "Saving"
	}
	return "Loan"
}

// AccountSnapshot is a point-in-time read of a loan or saving account.
// All amounts are already normalized: missing values are zero.
type AccountSnapshot struct {
	ID                string      `json:"id"`
	Kind              AccountKind `json:"kind"`
	HolderName        string      `json:"holder_name"`
	Phone             string      `json:"phone,omitempty"`
	OfficerName       string      `json:"officer_name,omitempty"`
	LoanAmount        float64     `json:"loan_amount"`
	TotalPayable      float64     `json:"total_payable"`
	InstallmentAmount float64     `json:"installment_amount"`
	TotalDue          float64     `json:"total_due"`
	InterestRate      float64     `json:"interest_rate"`
	StartDate         time.Time   `json:"start_date"`
	EndDate           time.Time   `json:"end_date"`
}

// AccountInput carries the optional fields of an account as decoded from the wire.
type AccountInput struct {
	ID                string
	Kind              AccountKind
	HolderName        string
	Phone             string
	OfficerName       string
	LoanAmount        *float64
	TotalPayable      *float64
	InstallmentAmount *float64
	TotalDue          *float64
	InterestRate      *float64
	StartDate         *time.Time
	EndDate           *time.Time
}

// NormalizeAccount turns a partially populated account into a snapshot.
// A missing end date becomes start date + DefaultTermDays.
func NormalizeAccount(in AccountInput) AccountSnapshot {
	s := AccountSnapshot{
		ID:                in.ID,
		Kind:              in.Kind,
		HolderName:        strings.TrimSpace(in.HolderName),
		Phone:             in.Phone,
		OfficerName:       in.OfficerName,
		LoanAmount:        valueOrZero(in.LoanAmount),
		TotalPayable:      valueOrZero(in.TotalPayable),
		InstallmentAmount: valueOrZero(in.InstallmentAmount),
		TotalDue:          valueOrZero(in.TotalDue),
		InterestRate:      valueOrZero(in.InterestRate),
	}
	if in.StartDate != nil {
		s.StartDate = *in.StartDate
	}
	switch {
	case in.EndDate != nil && !in.EndDate.IsZero():
		s.EndDate = *in.EndDate
	case !s.StartDate.IsZero():
		s.EndDate = s.StartDate.AddDate(0, 0, DefaultTermDays)
	}
	return s
}
