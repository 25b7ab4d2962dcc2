package ports

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/avatarctic/land-registry-gateway/internal/core/domain/envelope"
)

// Request is one logical call against the registry API. Operation and
// CacheKey label the call for logs, metrics and the usage ledger; the
// executor does not send them.
type Request struct {
	Operation string
	CacheKey  string
	Method    string
	Path      string
	Query     url.Values
	Body      any
	Headers   http.Header
}

// RequestExecutor performs exactly one network call and folds every failure
// into the returned envelope. It never interprets the payload.
type RequestExecutor interface {
	// Do calls an endpoint that answers with a JSON result envelope and
	// returns the raw data member.
	Do(ctx context.Context, req Request) envelope.Result[json.RawMessage]
	// Fetch calls a binary endpoint and returns the body as-is.
	Fetch(ctx context.Context, req Request) envelope.Result[[]byte]
}

// TokenSource supplies the bearer token attached to each outbound request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
