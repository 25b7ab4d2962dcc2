package ports

import (
	"context"

	"github.com/avatarctic/land-registry-gateway/internal/core/domain/usage"
)

// UsageRepository persists the upstream call ledger.
type UsageRepository interface {
	Create(ctx context.Context, call *usage.Call) error
	List(ctx context.Context, filter *usage.CallFilter) ([]*usage.Call, error)
	Count(ctx context.Context, filter *usage.CallFilter) (int, error)
	CountByOperation(ctx context.Context, filter *usage.CallFilter) ([]usage.OperationCount, error)
}

// UsageRecorder records each dispatch to the registry.
type UsageRecorder interface {
	Record(ctx context.Context, call *usage.Call)
}

// UsageService exposes the ledger to operators.
type UsageService interface {
	UsageRecorder
	GetCalls(ctx context.Context, filter *usage.CallFilter) ([]*usage.Call, int, error)
	Summarize(ctx context.Context, filter *usage.CallFilter) ([]usage.OperationCount, error)
}
