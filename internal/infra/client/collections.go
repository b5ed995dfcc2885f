package client

import (
	"context"
	"net/url"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ListCollections fetches every collection recorded against an account.
func (c *BackendClient) ListCollections(ctx context.Context, kind domain.AccountKind, accountID string) ([]domain.CollectionRecord, error) {
	ctx, span := tracer.Start(ctx, "BackendClient.ListCollections")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", accountID),
		attribute.String("account.kind", string(kind)),
	)

	var page collectionList
	path := accountPath(kind) + "/" + url.PathEscape(accountID) + "/collections"
	if err := c.getJSON(ctx, "backend/collections", path, nil, string(kind), accountID, &page); err != nil {
		return nil, err
	}

	records := page.records(accountID)
	span.SetAttributes(attribute.Int("collections.count", len(records)))
	return records, nil
}

// ListOfficerCollections fetches the collections recorded by one officer,
// narrowed server-side to the given date range when bounds are set.
func (c *BackendClient) ListOfficerCollections(ctx context.Context, officerID string, dr domain.DateRange) ([]domain.CollectionRecord, error) {
	ctx, span := tracer.Start(ctx, "BackendClient.ListOfficerCollections")
	defer span.End()
	span.SetAttributes(attribute.String("officer.id", officerID))

	q := url.Values{}
	if dr.From != nil {
		q.Set("from", dr.From.Format(domain.DateLayout))
	}
	if dr.To != nil {
		q.Set("to", dr.To.Format(domain.DateLayout))
	}

	var page collectionList
	path := "/v1/officers/" + url.PathEscape(officerID) + "/collections"
	if err := c.getJSON(ctx, "backend/collections", path, q, "officer", officerID, &page); err != nil {
		return nil, err
	}

	records := page.records("")
	for i := range records {
		if records[i].AgentID == "" {
			records[i].AgentID = officerID
		}
	}
	return records, nil
}
