// Package jobs runs scheduled background work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"
	"github.com/boddenberg/mfi-statements-bfa/internal/infra/observability"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DigestSource computes the per-officer totals of one day.
type DigestSource interface {
	DailyDigest(ctx context.Context, day time.Time) (*domain.DailyDigest, error)
}

// DailyDigest computes the previous day's collections per officer on a cron
// schedule, logs them and publishes them as gauges.
type DailyDigest struct {
	source  DigestSource
	metrics *observability.Metrics
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time

	cron *cron.Cron
}

// NewDailyDigest registers the job on the given standard 5-field cron spec.
func NewDailyDigest(source DigestSource, schedule string, metrics *observability.Metrics, logger *zap.Logger) (*DailyDigest, error) {
	j := &DailyDigest{
		source:  source,
		metrics: metrics,
		logger:  logger,
		timeout: 2 * time.Minute,
		now:     time.Now,
		cron:    cron.New(cron.WithLocation(time.Local)),
	}

	if _, err := j.cron.AddFunc(schedule, func() { _, _ = j.Run(context.Background()) }); err != nil {
		return nil, fmt.Errorf("register daily digest %q: %w", schedule, err)
	}
	return j, nil
}

// Start begins the cron scheduler.
func (j *DailyDigest) Start() {
	j.logger.Info("daily digest scheduler started")
	j.cron.Start()
}

// Stop waits for a running digest to finish.
func (j *DailyDigest) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		j.logger.Info("daily digest scheduler stopped")
	case <-ctx.Done():
		j.logger.Warn("daily digest still running at shutdown")
	}
}

// Next reports when the job will fire next.
func (j *DailyDigest) Next() time.Time {
	entries := j.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(j.now())
}

// Run computes yesterday's digest once.
func (j *DailyDigest) Run(ctx context.Context) (*domain.DailyDigest, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	day := j.now().AddDate(0, 0, -1)
	digest, err := j.source.DailyDigest(ctx, day)
	if err != nil {
		j.metrics.IncrDigestRun("error")
		j.logger.Error("daily digest failed", zap.String("date", day.Format(domain.DateLayout)), zap.Error(err))
		return nil, err
	}

	for _, o := range digest.Officers {
		j.metrics.SetOfficerDaily(o.OfficerID, o.Amount)
		j.logger.Info("officer daily collection",
			zap.String("date", digest.Date),
			zap.String("officer_id", o.OfficerID),
			zap.String("officer_name", o.OfficerName),
			zap.Int("count", o.Count),
			zap.Float64("amount", o.Amount),
			zap.Float64("penalty", o.Penalty),
		)
	}

	j.metrics.IncrDigestRun("success")
	j.logger.Info("daily digest completed",
		zap.String("date", digest.Date),
		zap.Int("officers", len(digest.Officers)),
		zap.Float64("total_amount", digest.TotalAmount),
		zap.Bool("degraded", digest.Degraded),
		zap.Strings("degraded_sources", digest.Sources),
	)
	return digest, nil
}
