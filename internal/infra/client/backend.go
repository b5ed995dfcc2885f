// Package client contains the HTTP adapters for the microfinance backend API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"
	"github.com/boddenberg/mfi-statements-bfa/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("client")

// BackendClient fetches accounts, collections and officers from the backend API.
// Every call goes through the circuit breaker and the retry policy.
type BackendClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewBackendClient creates a new BackendClient. token may be empty.
func NewBackendClient(httpClient *http.Client, baseURL, token string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *BackendClient {
	return &BackendClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		cb:         cb,
		cfg:        cfg,
	}
}

// Ping checks the backend health endpoint once, without retries.
func (c *BackendClient) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "BackendClient.Ping")
	defer span.End()

	req, err := c.newRequest(ctx, "/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.ErrExternalService{Service: "backend", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return &domain.ErrExternalService{Service: "backend", Err: fmt.Errorf("health returned status %d", resp.StatusCode)}
	}
	return nil
}

// getJSON issues a GET with retry and circuit breaker and decodes the body into out.
// resource and id are used to build a not-found error for 404 answers.
func (c *BackendClient) getJSON(ctx context.Context, service, path string, query url.Values, resource, id string, out any) error {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("http.path", path))

	_, err := resilience.Execute(ctx, c.cb, c.cfg, service, func() (struct{}, error) {
		req, err := c.newRequest(ctx, path, query)
		if err != nil {
			return struct{}{}, resilience.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return struct{}{}, resilience.Permanent(&domain.ErrNotFound{Resource: resource, ID: id})
		case resp.StatusCode >= 500:
			return struct{}{}, fmt.Errorf("%s returned status %d", service, resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return struct{}{}, resilience.Permanent(fmt.Errorf("%s returned status %d", service, resp.StatusCode))
		}

		// An empty 2xx body (204, or 200 with no content) leaves out untouched.
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return struct{}{}, resilience.Permanent(fmt.Errorf("decode %s response: %w", service, err))
		}
		return struct{}{}, nil
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (c *BackendClient) newRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// accountPath maps an account kind to its backend collection path.
func accountPath(kind domain.AccountKind) string {
	if kind == domain.KindSaving {
		return "/v1/savings"
	}
	return "/v1/loans"
}
