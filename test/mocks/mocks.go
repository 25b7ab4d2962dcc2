package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/avatarctic/land-registry-gateway/internal/core/domain/bulkjob"
	"github.com/avatarctic/land-registry-gateway/internal/core/domain/envelope"
	"github.com/avatarctic/land-registry-gateway/internal/core/domain/landregistry"
	"github.com/avatarctic/land-registry-gateway/internal/core/domain/usage"
	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
)

const notConfigured = "mock not configured"

// LandRegistryGatewayMock is a lightweight mock for LandRegistryGateway
type LandRegistryGatewayMock struct {
	SearchPropertiesFn         func(ctx context.Context, params landregistry.PropertySearchParams) envelope.Result[landregistry.PropertySearchResult]
	GetPropertyByTitleNumberFn func(ctx context.Context, titleNumber string) envelope.Result[landregistry.Property]
	LookupOwnershipFn          func(ctx context.Context, params landregistry.OwnershipLookupParams) envelope.Result[landregistry.OwnershipLookupResult]
	SearchPricePaidFn          func(ctx context.Context, params landregistry.PricePaidSearchParams) envelope.Result[landregistry.PricePaidSearchResult]
	GetPriceHistoryFn          func(ctx context.Context, titleNumber string) envelope.Result[landregistry.PriceHistory]
	StartBulkSearchFn          func(ctx context.Context, req landregistry.BulkSearchRequest) envelope.Result[bulkjob.Handle]
	GetBulkSearchStatusFn      func(ctx context.Context, requestID string) envelope.Result[bulkjob.Job]
	DownloadBulkResultsFn      func(ctx context.Context, requestID string) envelope.Result[[]byte]
	ClearAPICacheFn            func(ctx context.Context) envelope.Result[landregistry.CacheClearResult]
	GetHealthStatusFn          func(ctx context.Context) envelope.Result[landregistry.HealthStatus]
	CacheStatsFn               func(ctx context.Context) ports.CacheStats
	InvalidateCacheFn          func(ctx context.Context, keys ...string)
}

func (m *LandRegistryGatewayMock) SearchProperties(ctx context.Context, params landregistry.PropertySearchParams) envelope.Result[landregistry.PropertySearchResult] {
	if m.SearchPropertiesFn != nil {
		return m.SearchPropertiesFn(ctx, params)
	}
	return envelope.Failf[landregistry.PropertySearchResult](envelope.CodeNetworkError, notConfigured)
}
func (m *LandRegistryGatewayMock) GetPropertyByTitleNumber(ctx context.Context, titleNumber string) envelope.Result[landregistry.Property] {
	if m.GetPropertyByTitleNumberFn != nil {
		return m.GetPropertyByTitleNumberFn(ctx, titleNumber)
	}
	return envelope.Failf[landregistry.Property](envelope.CodeNetworkError, notConfigured)
}
func (m *LandRegistryGatewayMock) LookupOwnership(ctx context.Context, params landregistry.OwnershipLookupParams) envelope.Result[landregistry.OwnershipLookupResult] {
	if m.LookupOwnershipFn != nil {
		return m.LookupOwnershipFn(ctx, params)
	}
	return envelope.Failf[landregistry.OwnershipLookupResult](envelope.CodeNetworkError, notConfigured)
}
func (m *LandRegistryGatewayMock) SearchPricePaid(ctx context.Context, params landregistry.PricePaidSearchParams) envelope.Result[landregistry.PricePaidSearchResult] {
	if m.SearchPricePaidFn != nil {
		return m.SearchPricePaidFn(ctx, params)
	}
	return envelope.Failf[landregistry.PricePaidSearchResult](envelope.CodeNetworkError, notConfigured)
}
func (m *LandRegistryGatewayMock) GetPriceHistory(ctx context.Context, titleNumber string) envelope.Result[landregistry.PriceHistory] {
	if m.GetPriceHistoryFn != nil {
		return m.GetPriceHistoryFn(ctx, titleNumber)
	}
	return envelope.Failf[landregistry.PriceHistory](envelope.CodeNetworkError, notConfigured)
}
func (m *LandRegistryGatewayMock) StartBulkSearch(ctx context.Context, req landregistry.BulkSearchRequest) envelope.Result[bulkjob.Handle] {
	if m.StartBulkSearchFn != nil {
		return m.StartBulkSearchFn(ctx, req)
	}
	return envelope.Failf[bulkjob.Handle](envelope.CodeNetworkError, notConfigured)
}
func (m *LandRegistryGatewayMock) GetBulkSearchStatus(ctx context.Context, requestID string) envelope.Result[bulkjob.Job] {
	if m.GetBulkSearchStatusFn != nil {
		return m.GetBulkSearchStatusFn(ctx, requestID)
	}
	return envelope.Failf[bulkjob.Job](envelope.CodeNetworkError, notConfigured)
}
func (m *LandRegistryGatewayMock) DownloadBulkResults(ctx context.Context, requestID string) envelope.Result[[]byte] {
	if m.DownloadBulkResultsFn != nil {
		return m.DownloadBulkResultsFn(ctx, requestID)
	}
	return envelope.Failf[[]byte](envelope.CodeNetworkError, notConfigured)
}
func (m *LandRegistryGatewayMock) ClearAPICache(ctx context.Context) envelope.Result[landregistry.CacheClearResult] {
	if m.ClearAPICacheFn != nil {
		return m.ClearAPICacheFn(ctx)
	}
	return envelope.Failf[landregistry.CacheClearResult](envelope.CodeNetworkError, notConfigured)
}
func (m *LandRegistryGatewayMock) GetHealthStatus(ctx context.Context) envelope.Result[landregistry.HealthStatus] {
	if m.GetHealthStatusFn != nil {
		return m.GetHealthStatusFn(ctx)
	}
	return envelope.Failf[landregistry.HealthStatus](envelope.CodeNetworkError, notConfigured)
}
func (m *LandRegistryGatewayMock) CacheStats(ctx context.Context) ports.CacheStats {
	if m.CacheStatsFn != nil {
		return m.CacheStatsFn(ctx)
	}
	return ports.CacheStats{Keys: []string{}}
}
func (m *LandRegistryGatewayMock) InvalidateCache(ctx context.Context, keys ...string) {
	if m.InvalidateCacheFn != nil {
		m.InvalidateCacheFn(ctx, keys...)
	}
}

// UsageRepositoryMock is a lightweight mock for UsageRepository
type UsageRepositoryMock struct {
	CreateFn           func(ctx context.Context, call *usage.Call) error
	ListFn             func(ctx context.Context, filter *usage.CallFilter) ([]*usage.Call, error)
	CountFn            func(ctx context.Context, filter *usage.CallFilter) (int, error)
	CountByOperationFn func(ctx context.Context, filter *usage.CallFilter) ([]usage.OperationCount, error)
}

func (m *UsageRepositoryMock) Create(ctx context.Context, call *usage.Call) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, call)
	}
	return nil
}
func (m *UsageRepositoryMock) List(ctx context.Context, filter *usage.CallFilter) ([]*usage.Call, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	return nil, nil
}
func (m *UsageRepositoryMock) Count(ctx context.Context, filter *usage.CallFilter) (int, error) {
	if m.CountFn != nil {
		return m.CountFn(ctx, filter)
	}
	return 0, nil
}
func (m *UsageRepositoryMock) CountByOperation(ctx context.Context, filter *usage.CallFilter) ([]usage.OperationCount, error) {
	if m.CountByOperationFn != nil {
		return m.CountByOperationFn(ctx, filter)
	}
	return nil, nil
}

// UsageServiceMock is a lightweight mock for UsageService
type UsageServiceMock struct {
	RecordFn    func(ctx context.Context, call *usage.Call)
	GetCallsFn  func(ctx context.Context, filter *usage.CallFilter) ([]*usage.Call, int, error)
	SummarizeFn func(ctx context.Context, filter *usage.CallFilter) ([]usage.OperationCount, error)
}

func (m *UsageServiceMock) Record(ctx context.Context, call *usage.Call) {
	if m.RecordFn != nil {
		m.RecordFn(ctx, call)
	}
}
func (m *UsageServiceMock) GetCalls(ctx context.Context, filter *usage.CallFilter) ([]*usage.Call, int, error) {
	if m.GetCallsFn != nil {
		return m.GetCallsFn(ctx, filter)
	}
	return nil, 0, nil
}
func (m *UsageServiceMock) Summarize(ctx context.Context, filter *usage.CallFilter) ([]usage.OperationCount, error) {
	if m.SummarizeFn != nil {
		return m.SummarizeFn(ctx, filter)
	}
	return nil, nil
}

// UsageRecorderMock keeps every recorded call.
type UsageRecorderMock struct {
	mu    sync.Mutex
	Calls []usage.Call
}

func (m *UsageRecorderMock) Record(_ context.Context, call *usage.Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, *call)
}
func (m *UsageRecorderMock) Recorded() []usage.Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]usage.Call(nil), m.Calls...)
}

// RateLimiterMock is a lightweight mock for RateLimiterService
type RateLimiterMock struct {
	AllowFn func(ctx context.Context, clientKey string) (bool, int, int, time.Time, error)
}

func (m *RateLimiterMock) Allow(ctx context.Context, clientKey string) (bool, int, int, time.Time, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, clientKey)
	}
	return true, 0, 0, time.Time{}, nil
}

// RateLimitRepositoryMock is a lightweight mock for RateLimitRepository
type RateLimitRepositoryMock struct {
	IncrementWindowFn func(ctx context.Context, clientKey string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error)
}

func (m *RateLimitRepositoryMock) IncrementWindow(ctx context.Context, clientKey string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	if m.IncrementWindowFn != nil {
		return m.IncrementWindowFn(ctx, clientKey, window, keyPrefix, ttl)
	}
	return 1, time.Now().Truncate(window), nil
}

// JobNotifierMock is a lightweight mock for JobNotifier
type JobNotifierMock struct {
	NotifyJobFinishedFn func(ctx context.Context, recipient string, job bulkjob.Job) error
}

func (m *JobNotifierMock) NotifyJobFinished(ctx context.Context, recipient string, job bulkjob.Job) error {
	if m.NotifyJobFinishedFn != nil {
		return m.NotifyJobFinishedFn(ctx, recipient, job)
	}
	return nil
}

// HealthCheckerMock is a lightweight mock for HealthChecker
type HealthCheckerMock struct {
	NameValue string
	CheckFn   func(ctx context.Context) error
}

func (m *HealthCheckerMock) Name() string { return m.NameValue }
func (m *HealthCheckerMock) Check(ctx context.Context) error {
	if m.CheckFn != nil {
		return m.CheckFn(ctx)
	}
	return nil
}

// ObservedCall is one UpstreamCall event.
type ObservedCall struct {
	Operation string
	Code      string
}

// GatewayObserverMock records events for assertions.
type GatewayObserverMock struct {
	mu       sync.Mutex
	Hits     map[string]int
	Misses   map[string]int
	Upstream []ObservedCall
	Jobs     []string
}

func NewGatewayObserverMock() *GatewayObserverMock {
	return &GatewayObserverMock{Hits: map[string]int{}, Misses: map[string]int{}}
}

func (m *GatewayObserverMock) CacheLookup(operation string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.Hits[operation]++
	} else {
		m.Misses[operation]++
	}
}
func (m *GatewayObserverMock) UpstreamCall(operation, code string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Upstream = append(m.Upstream, ObservedCall{Operation: operation, Code: code})
}
func (m *GatewayObserverMock) BulkJobObserved(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Jobs = append(m.Jobs, status)
}
func (m *GatewayObserverMock) HitCount(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Hits[operation]
}
func (m *GatewayObserverMock) MissCount(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Misses[operation]
}
func (m *GatewayObserverMock) UpstreamCalls() []ObservedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ObservedCall(nil), m.Upstream...)
}

var (
	_ ports.LandRegistryGateway = (*LandRegistryGatewayMock)(nil)
	_ ports.UsageRepository     = (*UsageRepositoryMock)(nil)
	_ ports.UsageService        = (*UsageServiceMock)(nil)
	_ ports.UsageRecorder       = (*UsageRecorderMock)(nil)
	_ ports.RateLimiterService  = (*RateLimiterMock)(nil)
	_ ports.RateLimitRepository = (*RateLimitRepositoryMock)(nil)
	_ ports.JobNotifier         = (*JobNotifierMock)(nil)
	_ ports.HealthChecker       = (*HealthCheckerMock)(nil)
	_ ports.GatewayObserver     = (*GatewayObserverMock)(nil)
)
