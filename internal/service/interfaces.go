package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"catalog_sync/internal/domain"
)

type IntegrationStore interface {
	Get(ctx context.Context, id string) (*domain.Integration, error)
	ListActive(ctx context.Context, providers []domain.ProviderID) ([]domain.Integration, error)
	UpdateLastSyncAt(ctx context.Context, id string, at time.Time) error
}

type SyncLogStore interface {
	Insert(ctx context.Context, log *domain.SyncLog) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Dispatcher hands a listing to the catalog ingestion service.
type Dispatcher interface {
	Upsert(ctx context.Context, integrationID string, listing *domain.Listing) (*domain.UpsertResult, error)
}

// Provider fetches and transforms items from one upstream provider.
type Provider interface {
	ID() domain.ProviderID
	Fetch(ctx context.Context, cfg *domain.IntegrationConfig, stats *domain.SyncRunStats) (*domain.FetchResult, error)
	Transform(cfg *domain.IntegrationConfig, facets map[domain.ContentType][]string, item domain.FetchedItem, now time.Time) (*domain.Listing, error)
}
