package client

import (
	"context"
	"net/url"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ListOfficers fetches all field officers.
func (c *BackendClient) ListOfficers(ctx context.Context) ([]domain.Officer, error) {
	ctx, span := tracer.Start(ctx, "BackendClient.ListOfficers")
	defer span.End()

	var list officerList
	if err := c.getJSON(ctx, "backend/officers", "/v1/officers", nil, "officers", "", &list); err != nil {
		return nil, err
	}

	officers := make([]domain.Officer, 0, len(list.items))
	for _, o := range list.items {
		officers = append(officers, o.officer())
	}
	span.SetAttributes(attribute.Int("officers.count", len(officers)))
	return officers, nil
}

// GetOfficer fetches a single field officer.
func (c *BackendClient) GetOfficer(ctx context.Context, officerID string) (*domain.Officer, error) {
	ctx, span := tracer.Start(ctx, "BackendClient.GetOfficer")
	defer span.End()
	span.SetAttributes(attribute.String("officer.id", officerID))

	var dto officerDTO
	if err := c.getJSON(ctx, "backend/officers", "/v1/officers/"+url.PathEscape(officerID), nil, "officer", officerID, &dto); err != nil {
		return nil, err
	}
	o := dto.officer()
	if o.ID == "" {
		o.ID = officerID
	}
	return &o, nil
}
