package service

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/aggregate"
	"github.com/boddenberg/mfi-statements-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// digestFanOut bounds concurrent per-officer reads in the daily digest.
const digestFanOut = 4

// OfficerCollections returns one officer's collections grouped by day.
func (s *ReportService) OfficerCollections(ctx context.Context, officerID string, dr domain.DateRange) (*domain.CollectionReport, error) {
	if err := dr.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ReportService.OfficerCollections")
	defer span.End()
	span.SetAttributes(attribute.String("officer.id", officerID))

	var (
		officer        *domain.Officer
		records        []domain.CollectionRecord
		offErr, colErr error
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		o, err := s.officers.GetOfficer(gCtx, officerID)
		if err != nil {
			if isNotFound(err) {
				return err
			}
			offErr = err
			return nil
		}
		officer = o
		return nil
	})

	g.Go(func() error {
		r, err := s.collections.ListOfficerCollections(gCtx, officerID, dr)
		if err != nil && !isNotFound(err) {
			colErr = err
			return nil
		}
		records = r
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var degraded domain.Degradation
	fields := []zap.Field{zap.String("officer_id", officerID)}
	if offErr != nil {
		s.degrade(&degraded, SourceOfficer, offErr, fields...)
	}
	if colErr != nil {
		s.degrade(&degraded, SourceOfficerCollections, colErr, fields...)
	}

	subject := officerID
	if officer != nil && officer.Name != "" {
		subject = officer.Name
	}

	report := buildReport(subject, "day", dr, aggregate.FilterByDateRange(records, dr), aggregate.DayKey)
	report.Degradation = degraded
	return report, nil
}

// DailyDigest totals the collections of every officer for one calendar day.
// Officers whose collections cannot be read appear with zero totals and are
// listed in the degradation sources.
func (s *ReportService) DailyDigest(ctx context.Context, day time.Time) (*domain.DailyDigest, error) {
	ctx, span := tracer.Start(ctx, "ReportService.DailyDigest")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("daily_digest", time.Since(start))
	}()

	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local)
	dateKey := day.Format(domain.DateLayout)
	span.SetAttributes(attribute.String("digest.date", dateKey))

	digest := &domain.DailyDigest{
		Date:        dateKey,
		Officers:    []domain.OfficerTotal{},
		GeneratedAt: s.now(),
	}

	officers, err := s.officers.ListOfficers(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.degrade(&digest.Degradation, SourceOfficers, err, zap.String("date", dateKey))
		return digest, nil
	}

	dr := domain.DateRange{From: &day, To: &day}
	totals := make([]domain.OfficerTotal, len(officers))
	dayRecords := make([][]domain.CollectionRecord, len(officers))

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(digestFanOut)

	for i, o := range officers {
		i, o := i, o
		totals[i] = domain.OfficerTotal{OfficerID: o.ID, OfficerName: o.Name}
		g.Go(func() error {
			records, err := s.collections.ListOfficerCollections(gCtx, o.ID, dr)
			if err != nil && !isNotFound(err) {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				s.recordDegraded(SourceOfficerCollections, err,
					zap.String("officer_id", o.ID), zap.String("date", dateKey))
				mu.Lock()
				digest.Add(SourceOfficerCollections + ":" + o.ID)
				mu.Unlock()
				return nil
			}

			// The backend range is padded like every other date filter; keep the exact day only.
			exact := make([]domain.CollectionRecord, 0, len(records))
			for _, r := range records {
				if aggregate.DayKey(r) == dateKey {
					exact = append(exact, r)
				}
			}
			t := aggregate.Total(exact)
			totals[i].Count = t.Count
			totals[i].Amount = t.Amount
			totals[i].Penalty = t.Penalty
			dayRecords[i] = exact
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []domain.CollectionRecord
	for _, r := range dayRecords {
		all = append(all, r...)
	}
	grand := aggregate.Total(all)

	digest.Officers = totals
	digest.TotalAmount = grand.Amount
	digest.TotalPenalty = grand.Penalty
	return digest, nil
}
