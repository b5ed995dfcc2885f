package client

import (
	"context"
	"net/url"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// GetAccount fetches a loan or saving account and normalizes it.
func (c *BackendClient) GetAccount(ctx context.Context, kind domain.AccountKind, accountID string) (*domain.AccountSnapshot, error) {
	ctx, span := tracer.Start(ctx, "BackendClient.GetAccount")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", accountID),
		attribute.String("account.kind", string(kind)),
	)

	var dto accountDTO
	path := accountPath(kind) + "/" + url.PathEscape(accountID)
	if err := c.getJSON(ctx, "backend/"+string(kind), path, nil, string(kind), accountID, &dto); err != nil {
		return nil, err
	}

	snap := domain.NormalizeAccount(dto.input(kind, accountID))
	return &snap, nil
}
