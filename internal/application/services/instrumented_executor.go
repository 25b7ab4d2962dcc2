package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/land-registry-gateway/internal/core/domain/envelope"
	"github.com/avatarctic/land-registry-gateway/internal/core/domain/usage"
	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
)

// codeOK labels successful dispatches in metrics.
const codeOK = "OK"

// InstrumentedExecutor decorates a RequestExecutor, reporting every
// dispatch to the observer and the usage ledger. Results pass through
// unchanged.
type InstrumentedExecutor struct {
	inner    ports.RequestExecutor
	observer ports.GatewayObserver
	usage    ports.UsageRecorder
	logger   *logrus.Logger
	now      func() time.Time
}

// NewInstrumentedExecutor wraps inner. observer and recorder may be nil.
func NewInstrumentedExecutor(inner ports.RequestExecutor, observer ports.GatewayObserver, recorder ports.UsageRecorder, logger *logrus.Logger) *InstrumentedExecutor {
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &InstrumentedExecutor{inner: inner, observer: observer, usage: recorder, logger: logger, now: time.Now}
}

func (e *InstrumentedExecutor) Do(ctx context.Context, req ports.Request) envelope.Result[json.RawMessage] {
	start := e.now()
	res := e.inner.Do(ctx, req)
	e.report(ctx, req, res.Error, e.now().Sub(start))
	return res
}

func (e *InstrumentedExecutor) Fetch(ctx context.Context, req ports.Request) envelope.Result[[]byte] {
	start := e.now()
	res := e.inner.Fetch(ctx, req)
	e.report(ctx, req, res.Error, e.now().Sub(start))
	return res
}

func (e *InstrumentedExecutor) report(ctx context.Context, req ports.Request, apiErr *envelope.APIError, elapsed time.Duration) {
	code := codeOK
	if apiErr != nil {
		code = apiErr.Code
	}
	e.observer.UpstreamCall(req.Operation, code, elapsed)

	fields := logrus.Fields{"operation": req.Operation, "code": code, "elapsed_ms": elapsed.Milliseconds()}
	if apiErr != nil {
		e.logger.WithFields(fields).WithField("message", apiErr.Message).Info("land registry call failed")
	} else {
		e.logger.WithFields(fields).Debug("land registry call succeeded")
	}

	if e.usage == nil {
		return
	}
	call := &usage.Call{
		Operation:   req.Operation,
		CacheKey:    req.CacheKey,
		Method:      req.Method,
		Path:        req.Path,
		Success:     apiErr == nil,
		DurationMS:  elapsed.Milliseconds(),
		RequestedAt: e.now().Add(-elapsed),
	}
	if apiErr != nil {
		call.ErrorCode = apiErr.Code
	}
	e.usage.Record(ctx, call)
}

type noopObserver struct{}

func (noopObserver) CacheLookup(string, bool)                   {}
func (noopObserver) UpstreamCall(string, string, time.Duration) {}
func (noopObserver) BulkJobObserved(string)                     {}

var _ ports.RequestExecutor = (*InstrumentedExecutor)(nil)
