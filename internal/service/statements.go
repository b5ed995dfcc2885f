package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"
	"github.com/boddenberg/mfi-statements-bfa/internal/statement"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// StatementRequest selects what goes into a statement and how it is rendered.
type StatementRequest struct {
	Range  domain.DateRange
	Locale string
	Format string
	Title  string
}

// StatementFile is a rendered statement ready to be sent as a download.
type StatementFile struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
	domain.Degradation
}

// Statement builds and renders an account statement. Input is validated before
// any backend call; rendering holds a bulkhead slot.
func (s *ReportService) Statement(ctx context.Context, kind domain.AccountKind, accountID string, req StatementRequest) (*StatementFile, error) {
	if err := req.Range.Validate(); err != nil {
		return nil, err
	}
	format, err := statement.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ReportService.Statement")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", accountID),
		attribute.String("statement.format", string(format)),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("statement", time.Since(start))
	}()

	data, err := s.loadAccount(ctx, kind, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrTimeout{Operation: "statement render"}
	}
	defer s.bulkhead.Release()

	stmt := statement.Build(statement.Input{
		Account:  data.account,
		Records:  data.records,
		Title:    req.Title,
		Locale:   req.Locale,
		Range:    req.Range,
		Currency: s.currency,
		Now:      s.now(),
	})

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, stmt, format); err != nil {
		s.logger.Error("statement render failed",
			append(accountFields(kind, accountID), zap.String("format", string(format)), zap.Error(err))...,
		)
		return nil, fmt.Errorf("render %s statement: %w", format, err)
	}

	s.metrics.IncrStatement(string(kind), string(format))
	s.logger.Info("statement generated",
		append(accountFields(kind, accountID),
			zap.String("statement_id", stmt.ID),
			zap.String("format", string(format)),
			zap.Int("rows", stmt.RowCount()),
			zap.Bool("degraded", data.degraded.Degraded),
		)...,
	)

	return &StatementFile{
		Filename:    stmt.Filename(format),
		ContentType: format.ContentType(),
		Body:        buf.Bytes(),
		Rows:        stmt.RowCount(),
		Degradation: data.degraded,
	}, nil
}
