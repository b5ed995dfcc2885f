package handler

import (
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"
	"github.com/boddenberg/mfi-statements-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Accounts
// ============================================================

func accountSummaryHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/{kind}/{accountId}/summary")
		defer span.End()

		kind, err := domain.ParseAccountKind(chi.URLParam(r, "kind"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		dr, err := parseDateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		summary, err := svc.AccountSummary(ctx, kind, chi.URLParam(r, "accountId"), dr)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func listCollectionsHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/{kind}/{accountId}/collections")
		defer span.End()

		kind, err := domain.ParseAccountKind(chi.URLParam(r, "kind"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		dr, err := parseDateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		page, pageSize := parsePagination(r)

		result, err := svc.ListCollections(ctx, kind, chi.URLParam(r, "accountId"), dr, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func collectionReportHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/{kind}/{accountId}/collections/report")
		defer span.End()

		kind, err := domain.ParseAccountKind(chi.URLParam(r, "kind"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		dr, err := parseDateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		report, err := svc.CollectionReport(ctx, kind, chi.URLParam(r, "accountId"), dr, r.URL.Query().Get("group_by"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// statementHandler streams the rendered statement as a download.
func statementHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/{kind}/{accountId}/statement")
		defer span.End()

		kind, err := domain.ParseAccountKind(chi.URLParam(r, "kind"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		dr, err := parseDateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		q := r.URL.Query()
		accountID := chi.URLParam(r, "accountId")
		file, err := svc.Statement(ctx, kind, accountID, service.StatementRequest{
			Range:  dr,
			Locale: q.Get("locale"),
			Format: q.Get("format"),
			Title:  q.Get("title"),
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		span.SetAttributes(
			attribute.String("statement.filename", file.Filename),
			attribute.Int("statement.rows", file.Rows),
		)
		logger.Info("statement download",
			zap.String("account_id", accountID),
			zap.String("subject", SubjectFromContext(ctx)),
			zap.String("filename", file.Filename),
		)

		w.Header().Set("Content-Type", file.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
		w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
		w.Header().Set("Cache-Control", "no-store")
		setDegradedHeaders(w, file.Degradation)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(file.Body); err != nil {
			logger.Warn("statement write failed", zap.Error(err))
		}
	}
}

// ============================================================
// Officers and daily reports
// ============================================================

func officerCollectionsHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/officers/{officerId}/collections")
		defer span.End()

		dr, err := parseDateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		report, err := svc.OfficerCollections(ctx, chi.URLParam(r, "officerId"), dr)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func dailyDigestHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/daily")
		defer span.End()

		day, err := parseDay(r, "date", time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		digest, err := svc.DailyDigest(ctx, day)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, digest)
	}
}
