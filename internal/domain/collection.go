package domain

import (
	"math"
	"strings"
	"time"
)

// ============================================================
// Collections
// ============================================================

// CollectionRecord is one payment or deposit recorded by an officer.
type CollectionRecord struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Amount      float64   `json:"amount"`
	Penalty     float64   `json:"penalty"`
	CollectedAt time.Time `json:"collected_at"`
	AgentID     string    `json:"agent_id,omitempty"`
	AgentName   string    `json:"agent_name,omitempty"`
}

// CollectionInput carries the optional fields of a collection as decoded from the wire.
type CollectionInput struct {
	ID          string
	AccountID   string
	Amount      *float64
	Penalty     *float64
	CollectedAt *time.Time
	AgentID     string
	AgentName   string
}

// NormalizeCollection is the single place where missing or malformed
// collection fields are replaced by zero values.
func NormalizeCollection(in CollectionInput) CollectionRecord {
	r := CollectionRecord{
		ID:        in.ID,
		AccountID: in.AccountID,
		Amount:    valueOrZero(in.Amount),
		Penalty:   valueOrZero(in.Penalty),
		AgentID:   in.AgentID,
		AgentName: strings.TrimSpace(in.AgentName),
	}
	if in.CollectedAt != nil {
		r.CollectedAt = *in.CollectedAt
	}
	return r
}

func valueOrZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

// Officer is a field agent who records collections.
type Officer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Area  string `json:"area,omitempty"`
}
