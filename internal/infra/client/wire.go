package client

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"
)

// The backend is loose about types: amounts arrive as numbers, numeric
// strings or null, ids as strings or numbers, and timestamps in several
// layouts. The types below accept all of those and leave a nil value when
// a field is absent or unparseable, so normalization happens in one place.

type flexFloat struct{ v *float64 }

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	f.v = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		s = strings.ReplaceAll(strings.TrimSpace(str), ",", "")
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		f.v = &v
	}
	return nil
}

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	domain.DateLayout,
}

type flexTime struct{ t *time.Time }

func (f *flexTime) UnmarshalJSON(b []byte) error {
	f.t = nil
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			f.t = &t
			return nil
		}
	}
	return nil
}

type accountDTO struct {
	ID                flexString `json:"id"`
	HolderName        string     `json:"holder_name"`
	Phone             flexString `json:"phone"`
	OfficerName       string     `json:"officer_name"`
	LoanAmount        flexFloat  `json:"loan_amount"`
	TotalPayable      flexFloat  `json:"total_payable"`
	InstallmentAmount flexFloat  `json:"installment_amount"`
	TotalDue          flexFloat  `json:"total_due"`
	InterestRate      flexFloat  `json:"interest_rate"`
	StartDate         flexTime   `json:"start_date"`
	EndDate           flexTime   `json:"end_date"`
}

func (d accountDTO) input(kind domain.AccountKind, fallbackID string) domain.AccountInput {
	id := string(d.ID)
	if id == "" {
		id = fallbackID
	}
	return domain.AccountInput{
		ID:                id,
		Kind:              kind,
		HolderName:        d.HolderName,
		Phone:             string(d.Phone),
		OfficerName:       d.OfficerName,
		LoanAmount:        d.LoanAmount.v,
		TotalPayable:      d.TotalPayable.v,
		InstallmentAmount: d.InstallmentAmount.v,
		TotalDue:          d.TotalDue.v,
		InterestRate:      d.InterestRate.v,
		StartDate:         d.StartDate.t,
		EndDate:           d.EndDate.t,
	}
}

type collectionDTO struct {
	ID          flexString `json:"id"`
	AccountID   flexString `json:"account_id"`
	Amount      flexFloat  `json:"amount"`
	Penalty     flexFloat  `json:"penalty"`
	CollectedAt flexTime   `json:"collected_at"`
	AgentID     flexString `json:"agent_id"`
	AgentName   string     `json:"agent_name"`
}

// collectionList accepts both a bare JSON array and a {"data": [...]} envelope.
type collectionList struct{ items []collectionDTO }

func (l *collectionList) UnmarshalJSON(b []byte) error {
	return decodeList(b, &l.items)
}

func (l collectionList) records(accountID string) []domain.CollectionRecord {
	out := make([]domain.CollectionRecord, 0, len(l.items))
	for _, d := range l.items {
		acc := string(d.AccountID)
		if acc == "" {
			acc = accountID
		}
		out = append(out, domain.NormalizeCollection(domain.CollectionInput{
			ID:          string(d.ID),
			AccountID:   acc,
			Amount:      d.Amount.v,
			Penalty:     d.Penalty.v,
			CollectedAt: d.CollectedAt.t,
			AgentID:     string(d.AgentID),
			AgentName:   d.AgentName,
		}))
	}
	return out
}

type officerDTO struct {
	ID    flexString `json:"id"`
	Name  string     `json:"name"`
	Phone flexString `json:"phone"`
	Area  string     `json:"area"`
}

func (d officerDTO) officer() domain.Officer {
	return domain.Officer{
		ID:    string(d.ID),
		Name:  strings.TrimSpace(d.Name),
		Phone: string(d.Phone),
		Area:  d.Area,
	}
}

type officerList struct{ items []officerDTO }

func (l *officerList) UnmarshalJSON(b []byte) error {
	return decodeList(b, &l.items)
}

func decodeList[T any](b []byte, items *[]T) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*items = nil
		return nil
	}
	if b[0] == '[' {
		return json.Unmarshal(b, items)
	}
	var envelope struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(b, &envelope); err != nil {
		return err
	}
	*items = envelope.Data
	return nil
}
