package domain

import (
	"strings"
	"time"
)

// DateLayout is the format used for dates in query strings and filenames.
const DateLayout = "2006-01-02"

// DateRange is an optional, inclusive date window. A nil bound is open.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// ParseDateRange parses YYYY-MM-DD bounds in the local timezone. Empty strings are open bounds.
func ParseDateRange(from, to string) (DateRange, error) {
	var dr DateRange
	if from = strings.TrimSpace(from); from != "" {
		t, err := time.ParseInLocation(DateLayout, from, time.Local)
		if err != nil {
			return DateRange{}, &ErrValidation{Field: "from", Message: "must be YYYY-MM-DD"}
		}
		dr.From = &t
	}
	if to = strings.TrimSpace(to); to != "" {
		t, err := time.ParseInLocation(DateLayout, to, time.Local)
		if err != nil {
			return DateRange{}, &ErrValidation{Field: "to", Message: "must be YYYY-MM-DD"}
		}
		dr.To = &t
	}
	return dr, dr.Validate()
}

// Validate rejects ranges whose end is before their start.
func (d DateRange) Validate() error {
	if d.From != nil && d.To != nil && d.To.Before(*d.From) {
		return &ErrValidation{Field: "to", Message: "end date is before start date"}
	}
	return nil
}

// Bounded reports whether both ends are set.
func (d DateRange) Bounded() bool {
	return d.From != nil && d.To != nil
}

// IsZero reports whether neither end is set.
func (d DateRange) IsZero() bool {
	return d.From == nil && d.To == nil
}
