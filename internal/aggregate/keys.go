package aggregate

import (
	"strings"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"
)

// KeyFunc maps a record to its period key.
type KeyFunc func(domain.CollectionRecord) string

// UnknownPeriod is the key for records without a timestamp.
const UnknownPeriod = "Unknown"

// UnassignedAgent is the key for records without a collecting agent.
const UnassignedAgent = "Unassigned"

// MonthKey groups by calendar month, e.g. "March 2024".
func MonthKey(r domain.CollectionRecord) string {
	if r.CollectedAt.IsZero() {
		return UnknownPeriod
	}
	return r.CollectedAt.Local().Format("January 2006")
}

// YearKey groups by calendar year, e.g. "2024".
func YearKey(r domain.CollectionRecord) string {
	if r.CollectedAt.IsZero() {
		return UnknownPeriod
	}
	return r.CollectedAt.Local().Format("2006")
}

// WeekdayKey groups by day of week, e.g. "Monday".
func WeekdayKey(r domain.CollectionRecord) string {
	if r.CollectedAt.IsZero() {
		return UnknownPeriod
	}
	return r.CollectedAt.Local().Weekday().String()
}

// DayKey groups by calendar day, e.g. "2024-03-15".
func DayKey(r domain.CollectionRecord) string {
	if r.CollectedAt.IsZero() {
		return UnknownPeriod
	}
	return r.CollectedAt.Local().Format(domain.DateLayout)
}

// AgentKey groups by the collecting agent's name, falling back to its ID.
func AgentKey(r domain.CollectionRecord) string {
	switch {
	case r.AgentName != "":
		return r.AgentName
	case r.AgentID != "":
		return r.AgentID
	}
	return UnassignedAgent
}

var groupings = map[string]KeyFunc{
	"month":   MonthKey,
	"year":    YearKey,
	"weekday": WeekdayKey,
	"day":     DayKey,
	"agent":   AgentKey,
}

// ParseGroupBy resolves a group_by query value. Empty means month.
func ParseGroupBy(name string) (string, KeyFunc, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "month"
	}
	fn, ok := groupings[name]
	if !ok {
		return "", nil, &domain.ErrValidation{Field: "group_by", Message: "must be one of month, year, weekday, day, agent"}
	}
	return name, fn, nil
}
