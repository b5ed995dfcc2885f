package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"
	"github.com/boddenberg/mfi-statements-bfa/internal/handler"
	"github.com/boddenberg/mfi-statements-bfa/internal/infra/cache"
	"github.com/boddenberg/mfi-statements-bfa/internal/infra/observability"
	"github.com/boddenberg/mfi-statements-bfa/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// --- Fakes ---

type fakeBackend struct {
	accountErr     error
	collectionsErr error
	pingErr        error
}

func (f *fakeBackend) GetAccount(_ context.Context, kind domain.AccountKind, id string) (*domain.AccountSnapshot, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local)
	return &domain.AccountSnapshot{
		ID: id, Kind: kind, HolderName: "Asha Devi",
		LoanAmount: 5000, InstallmentAmount: 250, TotalDue: 1000,
		StartDate: start, EndDate: start.AddDate(0, 0, domain.DefaultTermDays),
	}, nil
}

func (f *fakeBackend) ListCollections(_ context.Context, _ domain.AccountKind, id string) ([]domain.CollectionRecord, error) {
	if f.collectionsErr != nil {
		return nil, f.collectionsErr
	}
	return []domain.CollectionRecord{
		{ID: "1", AccountID: id, Amount: 250, CollectedAt: time.Date(2024, time.February, 1, 10, 0, 0, 0, time.Local), AgentName: "Ravi"},
		{ID: "2", AccountID: id, Amount: 250, Penalty: 20, CollectedAt: time.Date(2024, time.January, 5, 10, 0, 0, 0, time.Local), AgentName: "Ravi"},
		{ID: "3", AccountID: id, Amount: 250, CollectedAt: time.Date(2024, time.February, 8, 10, 0, 0, 0, time.Local)},
	}, nil
}

func (f *fakeBackend) ListOfficerCollections(_ context.Context, officerID string, _ domain.DateRange) ([]domain.CollectionRecord, error) {
	return []domain.CollectionRecord{
		{ID: "9", Amount: 80, CollectedAt: time.Date(2024, time.March, 4, 9, 0, 0, 0, time.Local), AgentID: officerID},
	}, nil
}

func (f *fakeBackend) ListOfficers(_ context.Context) ([]domain.Officer, error) {
	return []domain.Officer{{ID: "o-1", Name: "Ravi"}}, nil
}

func (f *fakeBackend) GetOfficer(_ context.Context, id string) (*domain.Officer, error) {
	if id != "o-1" {
		return nil, &domain.ErrNotFound{Resource: "officer", ID: id}
	}
	return &domain.Officer{ID: id, Name: "Ravi"}, nil
}

func (f *fakeBackend) Ping(_ context.Context) error { return f.pingErr }

const secret = "test-secret"

func newRouter(t *testing.T, backend *fakeBackend, auth *handler.TokenValidator) (http.Handler, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics()
	accountCache := cache.New[domain.AccountSnapshot](time.Minute)
	collectionCache := cache.New[[]domain.CollectionRecord](time.Minute)
	t.Cleanup(func() {
		accountCache.Close()
		collectionCache.Close()
	})

	svc := service.NewReportService(service.Deps{
		Accounts:        backend,
		Collections:     backend,
		Officers:        backend,
		AccountCache:    accountCache,
		CollectionCache: collectionCache,
		Metrics:         metrics,
		Logger:          zap.NewNop(),
	})
	probes := []handler.Probe{{Name: "backend", Checker: backend}}
	return handler.NewRouter(svc, probes, auth, metrics, zap.NewNop()), metrics
}

func do(t *testing.T, h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Operational ---

func TestHealthz(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{}, nil)

	rec := do(t, router, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body domain.HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Len(t, body.Services, 2)
}

func TestHealthz_DegradedBackend(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{pingErr: errors.New("down")}, nil)

	rec := do(t, router, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body domain.HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
}

func TestReadyz(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{}, nil)

	rec := do(t, router, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{}, nil)

	_ = do(t, router, http.MethodGet, "/v1/loans/l-1/summary", nil)
	rec := do(t, router, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bfa_request_duration_seconds")
}

func TestPing(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{}, nil)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/ping", nil).Code)
}

// --- Reports ---

func TestAccountSummary(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{}, nil)

	rec := do(t, router, http.MethodGet, "/v1/loans/l-1/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body domain.AccountSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "l-1", body.Account.ID)
	assert.Equal(t, 750.0, body.TotalCollected)
	assert.Equal(t, "4", body.RemainingDisplay)
	assert.False(t, body.Degraded)
}

func TestAccountSummary_DegradedFlag(t *testing.T) {
	router, metrics := newRouter(t, &fakeBackend{collectionsErr: errors.New("timeout")}, nil)

	rec := do(t, router, http.MethodGet, "/v1/savings/s-1/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["degraded"])
	assert.Equal(t, []any{"collections"}, body["sources"])
	assert.Equal(t, 1.0, metrics.Snapshot().DegradedFallbacks)
}

func TestAccountSummary_BadInput(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{}, nil)

	cases := map[string]string{
		"unknown kind":   "/v1/cards/l-1/summary",
		"bad date":       "/v1/loans/l-1/summary?from=01-02-2024",
		"inverted range": "/v1/loans/l-1/summary?from=2024-03-01&to=2024-02-01",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, target, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAccountSummary_NotFound(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{accountErr: &domain.ErrNotFound{Resource: "loan", ID: "x"}}, nil)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/v1/loans/x/summary", nil).Code)
}

func TestListCollections(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{}, nil)

	rec := do(t, router, http.MethodGet, "/v1/loans/l-1/collections?page=1&page_size=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data    []domain.CollectionRecord `json:"data"`
		Total   int                       `json:"total"`
		HasMore bool                      `json:"has_more"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body.Data, 2)
	assert.Equal(t, 3, body.Total)
	assert.True(t, body.HasMore)
}

func TestListCollections_OversizedPageFallsBackToDefault(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{}, nil)

	rec := do(t, router, http.MethodGet, "/v1/loans/l-1/collections?page_size=500", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		PageSize int `json:"page_size"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, service.DefaultPageSize, body.PageSize)
}

func TestCollectionReport(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{}, nil)

	rec := do(t, router, http.MethodGet, "/v1/loans/l-1/collections/report?group_by=month", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body domain.CollectionReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Buckets, 2)
	assert.Equal(t, "February 2024", body.Buckets[0].Key)
	assert.Equal(t, 500.0, body.Buckets[0].Amount)

	rec = do(t, router, http.MethodGet, "/v1/loans/l-1/collections/report?group_by=fortnight", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"group_by"`)
}

func TestStatement_Download(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{}, nil)

	rec := do(t, router, http.MethodGet, "/v1/loans/l-1/statement?from=2024-01-01&to=2024-02-29&locale=hi", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		`attachment; filename=Asha_Devi_Loan_Statement_2024-01-01_to_2024-02-29_HI.pdf`,
		rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
	assert.Empty(t, rec.Header().Get("X-Degraded"))
}

func TestStatement_DegradedHeaders(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{accountErr: errors.New("reset")}, nil)

	rec := do(t, router, http.MethodGet, "/v1/loans/l-1/statement?format=xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("X-Degraded"))
	assert.Equal(t, "account", rec.Header().Get("X-Degraded-Sources"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "N_A_Loan_Statement.xlsx")
}

func TestStatement_BadFormat(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{}, nil)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/v1/loans/l-1/statement?format=doc", nil).Code)
}

func TestOfficerCollections(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{}, nil)

	rec := do(t, router, http.MethodGet, "/v1/officers/o-1/collections", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body domain.CollectionReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Ravi", body.Subject)
	assert.Equal(t, 80.0, body.TotalAmount)

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/v1/officers/o-9/collections", nil).Code)
}

func TestDailyDigest(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{}, nil)

	rec := do(t, router, http.MethodGet, "/v1/reports/daily?date=2024-03-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body domain.DailyDigest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "2024-03-04", body.Date)
	assert.Equal(t, 80.0, body.TotalAmount)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/v1/reports/daily?date=yesterday", nil).Code)
}

func TestReportMetrics(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{}, nil)

	_ = do(t, router, http.MethodGet, "/v1/loans/l-1/statement", nil)
	rec := do(t, router, http.MethodGet, "/v1/metrics/reports", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body domain.ReportMetrics
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1.0, body.StatementsGenerated)
}

// --- Auth ---

func sign(t *testing.T, claims jwt.Claims, key string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func TestAuth(t *testing.T) {
	router, _ := newRouter(t, &fakeBackend{}, handler.NewTokenValidator(secret))

	valid := sign(t, jwt.RegisteredClaims{
		Subject:   "admin-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, secret)
	expired := sign(t, jwt.RegisteredClaims{
		Subject:   "admin-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}, secret)
	wrongKey := sign(t, jwt.RegisteredClaims{
		Subject:   "admin-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, "other")
	noExpiry := sign(t, jwt.RegisteredClaims{Subject: "admin-1"}, secret)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized},
		{"no expiry", "Bearer " + noExpiry, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			if tc.header != "" {
				h.Set("Authorization", tc.header)
			}
			rec := do(t, router, http.MethodGet, "/v1/loans/l-1/summary", h)
			assert.Equal(t, tc.want, rec.Code)
		})
	}

	// Operational endpoints stay open.
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/healthz", nil).Code)
}

func TestNewTokenValidator_EmptySecretDisablesAuth(t *testing.T) {
	assert.Nil(t, handler.NewTokenValidator(""))
	assert.Nil(t, handler.NewTokenValidator("", " "))
}

func TestAuth_APIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-key"), bcrypt.MinCost)
	require.NoError(t, err)

	validator := handler.NewTokenValidator("", "batch:"+string(hash))
	require.NotNil(t, validator)

	name, err := validator.ValidateAPIKey("s3cret-key")
	require.NoError(t, err)
	assert.Equal(t, "batch", name)

	router, _ := newRouter(t, &fakeBackend{}, validator)

	cases := []struct {
		name string
		key  string
		want int
	}{
		{"valid key", "s3cret-key", http.StatusOK},
		{"wrong key", "guess", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			h.Set(handler.APIKeyHeader, tc.key)
			rec := do(t, router, http.MethodGet, "/v1/loans/l-1/summary", h)
			assert.Equal(t, tc.want, rec.Code)
		})
	}

	// Without a secret, bearer tokens are refused.
	token := sign(t, jwt.RegisteredClaims{
		Subject:   "admin-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, secret)
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodGet, "/v1/loans/l-1/summary", h).Code)
}
