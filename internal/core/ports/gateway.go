package ports

import (
	"context"

	"github.com/avatarctic/land-registry-gateway/internal/core/domain/bulkjob"
	"github.com/avatarctic/land-registry-gateway/internal/core/domain/envelope"
	"github.com/avatarctic/land-registry-gateway/internal/core/domain/landregistry"
)

// LandRegistryGateway is the consumer-facing client of the registry API.
// Every operation returns an envelope; none returns a Go error.
type LandRegistryGateway interface {
	SearchProperties(ctx context.Context, params landregistry.PropertySearchParams) envelope.Result[landregistry.PropertySearchResult]
	GetPropertyByTitleNumber(ctx context.Context, titleNumber string) envelope.Result[landregistry.Property]
	LookupOwnership(ctx context.Context, params landregistry.OwnershipLookupParams) envelope.Result[landregistry.OwnershipLookupResult]
	SearchPricePaid(ctx context.Context, params landregistry.PricePaidSearchParams) envelope.Result[landregistry.PricePaidSearchResult]
	GetPriceHistory(ctx context.Context, titleNumber string) envelope.Result[landregistry.PriceHistory]

	StartBulkSearch(ctx context.Context, req landregistry.BulkSearchRequest) envelope.Result[bulkjob.Handle]
	GetBulkSearchStatus(ctx context.Context, requestID string) envelope.Result[bulkjob.Job]
	DownloadBulkResults(ctx context.Context, requestID string) envelope.Result[[]byte]

	ClearAPICache(ctx context.Context) envelope.Result[landregistry.CacheClearResult]
	GetHealthStatus(ctx context.Context) envelope.Result[landregistry.HealthStatus]

	CacheStats(ctx context.Context) CacheStats
	InvalidateCache(ctx context.Context, keys ...string)
}

// BulkJobTracker owns the lifecycle of submitted bulk searches.
type BulkJobTracker interface {
	Submit(ctx context.Context, req landregistry.BulkSearchRequest) envelope.Result[bulkjob.Handle]
	Poll(ctx context.Context, jobID string) envelope.Result[bulkjob.Job]
	// Download returns Ok(nil) while the job has not completed.
	Download(ctx context.Context, jobID string) envelope.Result[[]byte]
	Tracked() int
}

// JobNotifier is told once when a tracked job reaches a terminal state.
type JobNotifier interface {
	NotifyJobFinished(ctx context.Context, recipient string, job bulkjob.Job) error
}
