// Package statement assembles account statements from a snapshot and its
// collection history and renders them as PDF or XLSX downloads.
//
// Build never fails: missing fields degrade to placeholders so a statement
// can always be produced. Only the byte renderers return errors.
package statement

import (
	"strings"
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/aggregate"
	"github.com/boddenberg/mfi-statements-bfa/internal/domain"

	"github.com/google/uuid"
)

const (
	// NamePlaceholder replaces a missing account holder name.
	NamePlaceholder = "N/A"
	// DatePlaceholder replaces a missing date.
	DatePlaceholder = "-"
	// DefaultLocale produces no title or filename suffix.
	DefaultLocale = "en"
	// DefaultCurrency prefixes every rendered amount.
	DefaultCurrency = "Rs."
)

// Input is everything needed to build one statement.
type Input struct {
	Account  domain.AccountSnapshot
	Records  []domain.CollectionRecord
	Title    string
	Locale   string
	Range    domain.DateRange
	Currency string
	Now      time.Time
}

// Header is the summary block at the top of the statement.
type Header struct {
	HolderName            string
	DocumentType          string
	StartDate             string
	EndDate               string
	Period                string
	LoanAmount            float64
	TotalPayable          float64
	InstallmentAmount     float64
	TotalDue              float64
	TotalCollected        float64
	TotalPenalty          float64
	CollectionCount       int
	RemainingInstallments string
	ProjectedMaturity     *float64
}

// Row is one collection line inside a month section.
type Row struct {
	Date    string
	Agent   string
	Amount  float64
	Penalty float64
}

// Section lists every collection of one calendar month with its subtotal.
type Section struct {
	Month   string
	Rows    []Row
	Amount  float64
	Penalty float64
}

// YearRow is one line of the yearly summary.
type YearRow struct {
	Year    string
	Count   int
	Amount  float64
	Penalty float64
}

// Statement is the format-independent document model.
type Statement struct {
	ID          string
	Title       string
	Locale      string
	Currency    string
	GeneratedAt time.Time
	Header      Header
	Months      []Section
	Years       []YearRow

	kind domain.AccountKind
	rng  domain.DateRange
}

// Build assembles a statement. Months appear in first-seen order of the
// records, matching the on-screen report.
func Build(in Input) *Statement {
	locale := strings.ToLower(strings.TrimSpace(in.Locale))
	if locale == "" {
		locale = DefaultLocale
	}
	currency := in.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	records := aggregate.FilterByDateRange(in.Records, in.Range)
	totals := aggregate.Total(records)

	s := &Statement{
		ID:          uuid.New().String(),
		Title:       title(in.Title, in.Account.Kind, locale),
		Locale:      locale,
		Currency:    currency,
		GeneratedAt: now,
		Header:      header(in.Account, in.Range, totals),
		kind:        in.Account.Kind,
		rng:         in.Range,
	}

	for _, b := range aggregate.GroupByPeriod(records, aggregate.MonthKey) {
		sec := Section{Month: b.Key, Amount: b.Amount, Penalty: b.Penalty, Rows: make([]Row, 0, len(b.Records))}
		for _, r := range b.Records {
			sec.Rows = append(sec.Rows, Row{
				Date:    formatDateTime(r.CollectedAt),
				Agent:   aggregate.AgentKey(r),
				Amount:  r.Amount,
				Penalty: r.Penalty,
			})
		}
		s.Months = append(s.Months, sec)
	}

	for _, b := range aggregate.GroupByPeriod(records, aggregate.YearKey) {
		s.Years = append(s.Years, YearRow{Year: b.Key, Count: len(b.Records), Amount: b.Amount, Penalty: b.Penalty})
	}

	return s
}

// RowCount is the number of collection rows across all month sections.
func (s *Statement) RowCount() int {
	n := 0
	for _, m := range s.Months {
		n += len(m.Rows)
	}
	return n
}

func header(a domain.AccountSnapshot, dr domain.DateRange, t aggregate.Totals) Header {
	name := a.HolderName
	if name == "" {
		name = NamePlaceholder
	}
	h := Header{
		HolderName:            name,
		DocumentType:          a.Kind.DocumentType(),
		StartDate:             formatDate(a.StartDate),
		EndDate:               formatDate(a.EndDate),
		Period:                periodLabel(dr),
		LoanAmount:            a.LoanAmount,
		TotalPayable:          a.TotalPayable,
		InstallmentAmount:     a.InstallmentAmount,
		TotalDue:              a.TotalDue,
		TotalCollected:        t.Amount,
		TotalPenalty:          t.Penalty,
		CollectionCount:       t.Count,
		RemainingInstallments: aggregate.FormatInstallments(aggregate.RemainingInstallments(a.TotalDue, a.InstallmentAmount)),
	}
	if a.Kind == domain.KindSaving {
		m := aggregate.SavingsProjection(a, t.Amount)
		h.ProjectedMaturity = &m
	}
	return h
}

func title(base string, kind domain.AccountKind, locale string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = kind.DocumentType() + " Statement"
	}
	if suffix := localeSuffix(locale); suffix != "" {
		return base + " (" + suffix + ")"
	}
	return base
}

func localeSuffix(locale string) string {
	if locale == "" || locale == DefaultLocale {
		return ""
	}
	return strings.ToUpper(locale)
}

func periodLabel(dr domain.DateRange) string {
	if dr.IsZero() {
		return "All collections"
	}
	return rangeBound(dr.From) + " to " + rangeBound(dr.To)
}

func rangeBound(t *time.Time) string {
	if t == nil {
		return "open"
	}
	return t.Format(domain.DateLayout)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return DatePlaceholder
	}
	return t.Local().Format("02 Jan 2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return DatePlaceholder
	}
	return t.Local().Format("02 Jan 2006 15:04")
}
