// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"
)

// AccountFetcher retrieves loan and saving account snapshots.
type AccountFetcher interface {
	GetAccount(ctx context.Context, kind domain.AccountKind, accountID string) (*domain.AccountSnapshot, error)
}

// CollectionsFetcher retrieves collection records.
type CollectionsFetcher interface {
	ListCollections(ctx context.Context, kind domain.AccountKind, accountID string) ([]domain.CollectionRecord, error)
	ListOfficerCollections(ctx context.Context, officerID string, dr domain.DateRange) ([]domain.CollectionRecord, error)
}

// OfficerFetcher retrieves field officers.
type OfficerFetcher interface {
	ListOfficers(ctx context.Context) ([]domain.Officer, error)
	GetOfficer(ctx context.Context, officerID string) (*domain.Officer, error)
}

// HealthChecker probes a dependency for readiness.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
