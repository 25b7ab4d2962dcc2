package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/avatarctic/land-registry-gateway/internal/core/domain/bulkjob"
	"github.com/avatarctic/land-registry-gateway/internal/core/domain/envelope"
	"github.com/avatarctic/land-registry-gateway/internal/core/domain/landregistry"
	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const titleNumberRule = "required,alphanum,max=12"

var errNoData = errors.New("response carries no data")

type ttlTier int

const (
	tierShort ttlTier = iota
	tierLong
)

// GatewayConfig configures caching. Zero TTLs fall back to 5m (short) and
// 30m (long).
type GatewayConfig struct {
	ShortTTL       time.Duration
	LongTTL        time.Duration
	TTLOverrides   map[string]time.Duration
	DedupeInFlight bool
}

// Gateway is the caching client of the registry API. Reads go through the
// cache; commands always reach the network.
type Gateway struct {
	cache    ports.CacheStore
	executor ports.RequestExecutor
	tracker  ports.BulkJobTracker
	observer ports.GatewayObserver
	logger   *logrus.Logger
	cfg      GatewayConfig
	inflight singleflight.Group
}

// NewGateway wires a gateway. executor should be the same instrumented
// executor the tracker uses so every dispatch is observed once.
func NewGateway(cache ports.CacheStore, executor ports.RequestExecutor, tracker ports.BulkJobTracker, observer ports.GatewayObserver, logger *logrus.Logger, cfg GatewayConfig) *Gateway {
	if cfg.ShortTTL <= 0 {
		cfg.ShortTTL = 5 * time.Minute
	}
	if cfg.LongTTL <= 0 {
		cfg.LongTTL = 30 * time.Minute
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Gateway{
		cache:    cache,
		executor: executor,
		tracker:  tracker,
		observer: observer,
		logger:   logger,
		cfg:      cfg,
	}
}

func (g *Gateway) ttlFor(operation string, tier ttlTier) time.Duration {
	if ttl, ok := g.cfg.TTLOverrides[operation]; ok && ttl > 0 {
		return ttl
	}
	if tier == tierLong {
		return g.cfg.LongTTL
	}
	return g.cfg.ShortTTL
}

func (g *Gateway) SearchProperties(ctx context.Context, params landregistry.PropertySearchParams) envelope.Result[landregistry.PropertySearchResult] {
	params = params.Normalize()
	if apiErr := checkParams(params, params.HasCriteria(), "at least one of postcode, street or town is required"); apiErr != nil {
		return envelope.Fail[landregistry.PropertySearchResult](apiErr)
	}
	q := params.Query()
	return readThrough[landregistry.PropertySearchResult](ctx, g, ports.Request{
		Operation: landregistry.OpSearchProperties,
		Method:    http.MethodGet,
		Path:      "/properties/search",
		Query:     q,
	}, q, tierShort)
}

func (g *Gateway) GetPropertyByTitleNumber(ctx context.Context, titleNumber string) envelope.Result[landregistry.Property] {
	titleNumber = landregistry.NormalizeTitleNumber(titleNumber)
	if apiErr := checkTitleNumber(titleNumber); apiErr != nil {
		return envelope.Fail[landregistry.Property](apiErr)
	}
	return readThrough[landregistry.Property](ctx, g, ports.Request{
		Operation: landregistry.OpGetPropertyByTitleNumber,
		Method:    http.MethodGet,
		Path:      "/properties/" + url.PathEscape(titleNumber),
	}, landregistry.TitleNumberParams(titleNumber), tierLong)
}

func (g *Gateway) LookupOwnership(ctx context.Context, params landregistry.OwnershipLookupParams) envelope.Result[landregistry.OwnershipLookupResult] {
	params = params.Normalize()
	if apiErr := checkParams(params, params.HasCriteria(), "at least one of titleNumber, postcode, companyName or proprietorName is required"); apiErr != nil {
		return envelope.Fail[landregistry.OwnershipLookupResult](apiErr)
	}
	q := params.Query()
	return readThrough[landregistry.OwnershipLookupResult](ctx, g, ports.Request{
		Operation: landregistry.OpLookupOwnership,
		Method:    http.MethodGet,
		Path:      "/ownership/lookup",
		Query:     q,
	}, q, tierShort)
}

func (g *Gateway) SearchPricePaid(ctx context.Context, params landregistry.PricePaidSearchParams) envelope.Result[landregistry.PricePaidSearchResult] {
	params = params.Normalize()
	if apiErr := checkParams(params, params.HasCriteria(), "at least one of postcode, street or town is required"); apiErr != nil {
		return envelope.Fail[landregistry.PricePaidSearchResult](apiErr)
	}
	q := params.Query()
	return readThrough[landregistry.PricePaidSearchResult](ctx, g, ports.Request{
		Operation: landregistry.OpSearchPricePaid,
		Method:    http.MethodGet,
		Path:      "/price-paid/search",
		Query:     q,
	}, q, tierShort)
}

func (g *Gateway) GetPriceHistory(ctx context.Context, titleNumber string) envelope.Result[landregistry.PriceHistory] {
	titleNumber = landregistry.NormalizeTitleNumber(titleNumber)
	if apiErr := checkTitleNumber(titleNumber); apiErr != nil {
		return envelope.Fail[landregistry.PriceHistory](apiErr)
	}
	return readThrough[landregistry.PriceHistory](ctx, g, ports.Request{
		Operation: landregistry.OpGetPriceHistory,
		Method:    http.MethodGet,
		Path:      "/price-paid/history/" + url.PathEscape(titleNumber),
	}, landregistry.TitleNumberParams(titleNumber), tierLong)
}

func (g *Gateway) StartBulkSearch(ctx context.Context, req landregistry.BulkSearchRequest) envelope.Result[bulkjob.Handle] {
	return g.tracker.Submit(ctx, req)
}

func (g *Gateway) GetBulkSearchStatus(ctx context.Context, requestID string) envelope.Result[bulkjob.Job] {
	return g.tracker.Poll(ctx, requestID)
}

func (g *Gateway) DownloadBulkResults(ctx context.Context, requestID string) envelope.Result[[]byte] {
	return g.tracker.Download(ctx, requestID)
}

// ClearAPICache clears the registry's server-side cache and, once that
// succeeds, every local entry.
func (g *Gateway) ClearAPICache(ctx context.Context) envelope.Result[landregistry.CacheClearResult] {
	res := g.executor.Do(ctx, ports.Request{
		Operation: landregistry.OpClearAPICache,
		Method:    http.MethodPost,
		Path:      "/cache/clear",
	})
	if !res.Success {
		return envelope.Recast[json.RawMessage, landregistry.CacheClearResult](res)
	}

	local := g.cache.Stats(ctx).Size
	g.cache.Invalidate(ctx)
	g.logger.WithField("local_entries", local).Info("land registry cache cleared")

	var out landregistry.CacheClearResult
	if string(res.Data) != "null" {
		if err := json.Unmarshal(res.Data, &out); err != nil {
			return envelope.Fail[landregistry.CacheClearResult](envelope.NewError(envelope.CodeDecodeError, err.Error(), nil))
		}
	}
	out.Cleared = true
	out.LocalEntriesCleared = local
	return envelope.Ok(out)
}

func (g *Gateway) GetHealthStatus(ctx context.Context) envelope.Result[landregistry.HealthStatus] {
	res := g.executor.Do(ctx, ports.Request{
		Operation: landregistry.OpGetHealthStatus,
		Method:    http.MethodGet,
		Path:      "/health",
	})
	if !res.Success {
		return envelope.Recast[json.RawMessage, landregistry.HealthStatus](res)
	}
	return decodeData[landregistry.HealthStatus](res.Data)
}

func (g *Gateway) CacheStats(ctx context.Context) ports.CacheStats {
	return g.cache.Stats(ctx)
}

func (g *Gateway) InvalidateCache(ctx context.Context, keys ...string) {
	g.cache.Invalidate(ctx, keys...)
}

// readThrough serves req from the cache under the key built from keyParams,
// or dispatches it and stores the raw data on success. Each hit is decoded
// afresh, so callers never share a value with the cache.
func readThrough[T any](ctx context.Context, g *Gateway, req ports.Request, keyParams url.Values, tier ttlTier) envelope.Result[T] {
	req.CacheKey = BuildCacheKey(req.Operation, keyParams)
	fields := logrus.Fields{"operation": req.Operation, "cache_key": req.CacheKey}

	if raw, ok := g.cache.Get(ctx, req.CacheKey); ok {
		if res := decodeData[T](raw); res.Success {
			g.observer.CacheLookup(req.Operation, true)
			g.logger.WithFields(fields).Debug("cache hit")
			return res
		}
		g.logger.WithFields(fields).Warn("discarding undecodable cache entry")
		g.cache.Invalidate(ctx, req.CacheKey)
	}
	g.observer.CacheLookup(req.Operation, false)
	g.logger.WithFields(fields).Debug("cache miss")

	res := g.fetch(ctx, req, g.ttlFor(req.Operation, tier), checkDecodes[T])
	if !res.Success {
		return envelope.Recast[json.RawMessage, T](res)
	}
	return decodeData[T](res.Data)
}

type fetchOutcome struct {
	res       envelope.Result[json.RawMessage]
	cancelled bool
}

// fetch dispatches a cacheable read, coalescing concurrent misses for the
// same key when deduplication is on.
func (g *Gateway) fetch(ctx context.Context, req ports.Request, ttl time.Duration, check func(json.RawMessage) error) envelope.Result[json.RawMessage] {
	if !g.cfg.DedupeInFlight {
		return g.fetchAndStore(ctx, req, ttl, check).res
	}

	ch := g.inflight.DoChan(req.CacheKey, func() (any, error) {
		return g.fetchAndStore(ctx, req, ttl, check), nil
	})
	select {
	case r := <-ch:
		out := r.Val.(fetchOutcome)
		if out.cancelled && ctx.Err() == nil {
			// the caller that led the shared fetch gave up; this one has not
			return g.fetchAndStore(ctx, req, ttl, check).res
		}
		return out.res
	case <-ctx.Done():
		return envelope.Fail[json.RawMessage](cancelledError())
	}
}

// fetchAndStore dispatches req and caches the data when it decodes and ctx
// is still live. A cancelled call never writes to the cache.
func (g *Gateway) fetchAndStore(ctx context.Context, req ports.Request, ttl time.Duration, check func(json.RawMessage) error) fetchOutcome {
	res := g.executor.Do(ctx, req)
	if ctx.Err() != nil {
		g.logger.WithField("operation", req.Operation).Debug("call cancelled; result not cached")
		return fetchOutcome{res: envelope.Fail[json.RawMessage](cancelledError()), cancelled: true}
	}
	if !res.Success {
		return fetchOutcome{res: res}
	}
	if err := check(res.Data); err != nil {
		g.logger.WithFields(logrus.Fields{"operation": req.Operation, "cache_key": req.CacheKey}).WithError(err).Warn("land registry data did not decode")
		return fetchOutcome{res: envelope.Fail[json.RawMessage](envelope.NewError(envelope.CodeDecodeError, err.Error(), nil))}
	}
	g.cache.Set(ctx, req.CacheKey, res.Data, ttl)
	return fetchOutcome{res: res}
}

func checkDecodes[T any](raw json.RawMessage) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errNoData
	}
	var v T
	return json.Unmarshal(raw, &v)
}

func decodeData[T any](raw []byte) envelope.Result[T] {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return envelope.Fail[T](envelope.NewError(envelope.CodeDecodeError, err.Error(), nil))
	}
	return envelope.Ok(v)
}

func cancelledError() *envelope.APIError {
	return envelope.NewError(envelope.CodeNetworkError, "request cancelled", nil)
}

// checkParams validates struct tags, then the at-least-one-criterion rule.
func checkParams(params any, hasCriteria bool, missing string) *envelope.APIError {
	if err := validate.Struct(params); err != nil {
		return envelope.NewError(envelope.CodeInvalidRequest, err.Error(), nil)
	}
	if !hasCriteria {
		return envelope.NewError(envelope.CodeInvalidRequest, missing, nil)
	}
	return nil
}

func checkTitleNumber(titleNumber string) *envelope.APIError {
	if err := validate.Var(titleNumber, titleNumberRule); err != nil {
		return envelope.NewError(envelope.CodeInvalidRequest, "invalid title number "+strconv.Quote(titleNumber), nil)
	}
	return nil
}

var _ ports.LandRegistryGateway = (*Gateway)(nil)
