package service

import (
	"context"
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/aggregate"
	"github.com/boddenberg/mfi-statements-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// Pagination bounds for collection listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AccountSummary computes the summary cards of an account screen.
func (s *ReportService) AccountSummary(ctx context.Context, kind domain.AccountKind, accountID string, dr domain.DateRange) (*domain.AccountSummary, error) {
	if err := dr.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ReportService.AccountSummary")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("account_summary", time.Since(start))
	}()

	data, err := s.loadAccount(ctx, kind, accountID)
	if err != nil {
		return nil, err
	}

	records := aggregate.FilterByDateRange(data.records, dr)
	totals := aggregate.Total(records)
	acc := data.account

	summary := &domain.AccountSummary{
		Account:         acc,
		Range:           dr,
		CollectionCount: totals.Count,
		TotalCollected:  totals.Amount,
		TotalPenalty:    totals.Penalty,
		Degradation:     data.degraded,
	}

	n, ok := aggregate.RemainingInstallments(acc.TotalDue, acc.InstallmentAmount)
	if ok {
		summary.RemainingInstallments = &n
	}
	summary.RemainingDisplay = aggregate.FormatInstallments(n, ok)

	if kind == domain.KindSaving {
		m := aggregate.SavingsProjection(acc, totals.Amount)
		summary.ProjectedMaturity = &m
	}

	span.SetAttributes(attribute.Bool("report.degraded", summary.Degraded))
	return summary, nil
}

// CollectionPage is one page of an account's collections.
type CollectionPage struct {
	domain.ListResponse[domain.CollectionRecord]
	domain.Degradation
}

// ListCollections returns the date-filtered collections of an account, paginated
// in backend order.
func (s *ReportService) ListCollections(ctx context.Context, kind domain.AccountKind, accountID string, dr domain.DateRange, page, pageSize int) (*CollectionPage, error) {
	if err := dr.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ReportService.ListCollections")
	defer span.End()

	data, err := s.loadAccount(ctx, kind, accountID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	records := aggregate.FilterByDateRange(data.records, dr)
	lo := min((page-1)*pageSize, len(records))
	hi := min(lo+pageSize, len(records))

	return &CollectionPage{
		ListResponse: domain.ListResponse[domain.CollectionRecord]{
			Data:     records[lo:hi],
			Total:    len(records),
			Page:     page,
			PageSize: pageSize,
			HasMore:  hi < len(records),
		},
		Degradation: data.degraded,
	}, nil
}

// CollectionReport groups an account's collections by the named period.
func (s *ReportService) CollectionReport(ctx context.Context, kind domain.AccountKind, accountID string, dr domain.DateRange, groupBy string) (*domain.CollectionReport, error) {
	if err := dr.Validate(); err != nil {
		return nil, err
	}
	name, key, err := aggregate.ParseGroupBy(groupBy)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ReportService.CollectionReport")
	defer span.End()
	span.SetAttributes(attribute.String("report.group_by", name))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("collection_report", time.Since(start))
	}()

	data, err := s.loadAccount(ctx, kind, accountID)
	if err != nil {
		return nil, err
	}

	subject := data.account.HolderName
	if subject == "" {
		subject = accountID
	}

	report := buildReport(subject, name, dr, aggregate.FilterByDateRange(data.records, dr), key)
	report.Degradation = data.degraded
	return report, nil
}

func buildReport(subject, groupBy string, dr domain.DateRange, records []domain.CollectionRecord, key aggregate.KeyFunc) *domain.CollectionReport {
	totals := aggregate.Total(records)
	buckets := aggregate.GroupByPeriod(records, key)

	report := &domain.CollectionReport{
		Subject:      subject,
		GroupBy:      groupBy,
		Range:        dr,
		Buckets:      make([]domain.BucketView, 0, len(buckets)),
		TotalAmount:  totals.Amount,
		TotalPenalty: totals.Penalty,
		Count:        totals.Count,
	}
	for _, b := range buckets {
		report.Buckets = append(report.Buckets, domain.BucketView{
			Key:     b.Key,
			Count:   len(b.Records),
			Amount:  b.Amount,
			Penalty: b.Penalty,
			Records: b.Records,
		})
	}
	return report
}
