package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"
	"github.com/boddenberg/mfi-statements-bfa/internal/infra/observability"
	"github.com/boddenberg/mfi-statements-bfa/internal/infra/resilience"
	"github.com/boddenberg/mfi-statements-bfa/internal/port"
	"github.com/boddenberg/mfi-statements-bfa/internal/statement"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/reports")

// Degraded-mode source labels, used in responses, logs and metrics.
const (
	SourceAccount            = "account"
	SourceCollections        = "collections"
	SourceOfficer            = "officer"
	SourceOfficers           = "officers"
	SourceOfficerCollections = "officer_collections"
)

// Deps holds everything ReportService needs. Nil optional fields get defaults.
type Deps struct {
	Accounts    port.AccountFetcher
	Collections port.CollectionsFetcher
	Officers    port.OfficerFetcher

	AccountCache    port.Cache[domain.AccountSnapshot]
	CollectionCache port.Cache[[]domain.CollectionRecord]

	Metrics  *observability.Metrics
	Logger   *zap.Logger
	Bulkhead *resilience.Bulkhead // bounds concurrent statement renders

	Currency string
	Renderer statement.Renderer
	Now      func() time.Time
}

// ReportService fetches account data from the backend, aggregates it and
// builds statements. A failing upstream read never fails a report: it is
// logged, counted and replaced by empty data, and the response is flagged
// as degraded.
type ReportService struct {
	accounts    port.AccountFetcher
	collections port.CollectionsFetcher
	officers    port.OfficerFetcher

	accountCache    port.Cache[domain.AccountSnapshot]
	collectionCache port.Cache[[]domain.CollectionRecord]

	metrics  *observability.Metrics
	logger   *zap.Logger
	bulkhead *resilience.Bulkhead

	currency string
	renderer statement.Renderer
	now      func() time.Time
}

// NewReportService creates the report service with all dependencies injected.
func NewReportService(d Deps) *ReportService {
	s := &ReportService{
		accounts:        d.Accounts,
		collections:     d.Collections,
		officers:        d.Officers,
		accountCache:    d.AccountCache,
		collectionCache: d.CollectionCache,
		metrics:         d.Metrics,
		logger:          d.Logger,
		bulkhead:        d.Bulkhead,
		currency:        d.Currency,
		renderer:        d.Renderer,
		now:             d.Now,
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetrics()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.bulkhead == nil {
		s.bulkhead = resilience.NewBulkhead(4)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// accountData is one account with its full collection history.
type accountData struct {
	account  domain.AccountSnapshot
	records  []domain.CollectionRecord
	degraded domain.Degradation
}

// loadAccount fetches the snapshot and the collections concurrently.
// Only a missing account or a cancelled context is returned as an error.
func (s *ReportService) loadAccount(ctx context.Context, kind domain.AccountKind, accountID string) (*accountData, error) {
	ctx, span := tracer.Start(ctx, "ReportService.loadAccount")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", accountID),
		attribute.String("account.kind", string(kind)),
	)

	var (
		account        *domain.AccountSnapshot
		records        []domain.CollectionRecord
		accErr, colErr error
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cacheKey := fmt.Sprintf("account:%s:%s", kind, accountID)
		if cached, ok := s.accountCache.Get(cacheKey); ok {
			s.metrics.IncrCacheHit(SourceAccount)
			account = &cached
			return nil
		}
		s.metrics.IncrCacheMiss(SourceAccount)

		a, err := s.accounts.GetAccount(gCtx, kind, accountID)
		if err != nil {
			if isNotFound(err) {
				return err
			}
			accErr = err
			return nil
		}
		account = a
		s.accountCache.Set(cacheKey, *a)
		return nil
	})

	g.Go(func() error {
		cacheKey := fmt.Sprintf("collections:%s:%s", kind, accountID)
		if cached, ok := s.collectionCache.Get(cacheKey); ok {
			s.metrics.IncrCacheHit(SourceCollections)
			records = cached
			return nil
		}
		s.metrics.IncrCacheMiss(SourceCollections)

		r, err := s.collections.ListCollections(gCtx, kind, accountID)
		switch {
		case err == nil:
			records = r
			s.collectionCache.Set(cacheKey, r)
		case isNotFound(err):
			// No collections recorded yet.
		default:
			colErr = err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := &accountData{records: records}
	if account != nil {
		data.account = *account
	} else {
		data.account = domain.AccountSnapshot{ID: accountID, Kind: kind}
	}
	if accErr != nil {
		s.degrade(&data.degraded, SourceAccount, accErr, accountFields(kind, accountID)...)
	}
	if colErr != nil {
		s.degrade(&data.degraded, SourceCollections, colErr, accountFields(kind, accountID)...)
	}
	if data.records == nil {
		data.records = []domain.CollectionRecord{}
	}
	return data, nil
}

// degrade logs and counts a fallback to empty data and flags it on d.
func (s *ReportService) degrade(d *domain.Degradation, source string, err error, fields ...zap.Field) {
	s.recordDegraded(source, err, fields...)
	d.Add(source)
}

func (s *ReportService) recordDegraded(source string, err error, fields ...zap.Field) {
	s.logger.Warn("upstream read failed, serving empty data",
		append(fields, zap.String("source", source), zap.Error(err))...,
	)
	s.metrics.IncrExternalError(source)
	s.metrics.IncrDegraded(source)
}

func accountFields(kind domain.AccountKind, accountID string) []zap.Field {
	return []zap.Field{
		zap.String("account_kind", string(kind)),
		zap.String("account_id", accountID),
	}
}

func isNotFound(err error) bool {
	var nf *domain.ErrNotFound
	return errors.As(err, &nf)
}
