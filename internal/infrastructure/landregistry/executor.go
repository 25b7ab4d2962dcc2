package landregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/land-registry-gateway/internal/core/domain/envelope"
	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 32 << 20
	defaultUserAgent    = "land-registry-gateway/1.0"

	headerRequestID = "X-Request-ID"
)

// ExecutorConfig configures the HTTP executor.
type ExecutorConfig struct {
	BaseURL      string
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
}

// Executor is the net/http RequestExecutor for the registry API.
type Executor struct {
	baseURL   *url.URL
	client    *http.Client
	tokens    ports.TokenSource
	userAgent string
	maxBody   int64
	schema    *schemaValidator
	logger    *logrus.Logger
}

type ExecutorOption func(*Executor)

// WithHTTPClient replaces the default client, e.g. to install a custom transport.
func WithHTTPClient(c *http.Client) ExecutorOption {
	return func(e *Executor) { e.client = c }
}

// NewExecutor builds an executor. tokens may be nil when the registry needs
// no authentication.
func NewExecutor(cfg ExecutorConfig, tokens ports.TokenSource, logger *logrus.Logger, opts ...ExecutorOption) (*Executor, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid land registry base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid land registry base url %q: scheme must be http or https", cfg.BaseURL)
	}
	schema, err := newSchemaValidator()
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if logger == nil {
		logger = logrus.New()
	}

	e := &Executor{
		baseURL:   base,
		client:    &http.Client{Timeout: cfg.Timeout},
		tokens:    tokens,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
		schema:    schema,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// wireEnvelope is the registry's response shape.
type wireEnvelope struct {
	Success bool               `json:"success"`
	Data    json.RawMessage    `json:"data"`
	Error   *envelope.APIError `json:"error"`
}

// Do implements ports.RequestExecutor.
func (e *Executor) Do(ctx context.Context, req ports.Request) envelope.Result[json.RawMessage] {
	status, body, apiErr := e.roundTrip(ctx, req, "application/json")
	if apiErr != nil {
		return envelope.Fail[json.RawMessage](apiErr)
	}
	if status < 200 || status > 299 {
		return envelope.Fail[json.RawMessage](serverError(status, body))
	}

	if err := e.schema.validate(body); err != nil {
		e.logger.WithFields(logrus.Fields{"path": req.Path, "status": status}).WithError(err).Warn("land registry returned a malformed envelope")
		return envelope.Fail[json.RawMessage](envelope.NewError(envelope.CodeDecodeError, err.Error(), nil))
	}
	var env wireEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return envelope.Fail[json.RawMessage](envelope.NewError(envelope.CodeDecodeError, err.Error(), nil))
	}
	if !env.Success {
		return envelope.Fail[json.RawMessage](env.Error)
	}
	if len(env.Data) == 0 {
		env.Data = json.RawMessage("null")
	}
	return envelope.Ok(env.Data)
}

// Fetch implements ports.RequestExecutor for binary endpoints.
func (e *Executor) Fetch(ctx context.Context, req ports.Request) envelope.Result[[]byte] {
	status, body, apiErr := e.roundTrip(ctx, req, "application/octet-stream, */*")
	if apiErr != nil {
		return envelope.Fail[[]byte](apiErr)
	}
	if status < 200 || status > 299 {
		return envelope.Fail[[]byte](serverError(status, body))
	}
	if body == nil {
		body = []byte{}
	}
	return envelope.Ok(body)
}

// roundTrip performs the call and reads the body. A non-nil APIError means
// no usable response was received.
func (e *Executor) roundTrip(ctx context.Context, req ports.Request, accept string) (int, []byte, *envelope.APIError) {
	httpReq, apiErr := e.newRequest(ctx, req, accept)
	if apiErr != nil {
		return 0, nil, apiErr
	}
	requestID := httpReq.Header.Get(headerRequestID)
	fields := logrus.Fields{"operation": req.Operation, "method": httpReq.Method, "path": req.Path, "request_id": requestID}

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		e.logger.WithFields(fields).WithError(err).Warn("land registry request failed")
		return 0, nil, networkError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody+1))
	if err != nil {
		e.logger.WithFields(fields).WithError(err).Warn("land registry response read failed")
		return 0, nil, networkError(ctx, err)
	}
	if int64(len(body)) > e.maxBody {
		return 0, nil, envelope.NewError(envelope.CodeDecodeError,
			fmt.Sprintf("response body exceeds %d bytes", e.maxBody), nil)
	}

	fields["status"] = resp.StatusCode
	fields["elapsed_ms"] = time.Since(start).Milliseconds()
	e.logger.WithFields(fields).Debug("land registry request completed")
	return resp.StatusCode, body, nil
}

func (e *Executor) newRequest(ctx context.Context, req ports.Request, accept string) (*http.Request, *envelope.APIError) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := *e.baseURL
	target.Path = e.baseURL.Path + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, envelope.NewError(envelope.CodeInvalidRequest, "failed to encode request body: "+err.Error(), nil)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, envelope.NewError(envelope.CodeInvalidRequest, err.Error(), nil)
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("User-Agent", e.userAgent)
	if httpReq.Header.Get(headerRequestID) == "" {
		httpReq.Header.Set(headerRequestID, uuid.NewString())
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if e.tokens != nil {
		token, err := e.tokens.Token(ctx)
		if err != nil {
			e.logger.WithError(err).Warn("land registry token unavailable")
			return nil, envelope.NewError(envelope.CodeAuthError, "failed to obtain registry token: "+err.Error(), nil)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return httpReq, nil
}

func networkError(ctx context.Context, err error) *envelope.APIError {
	msg := err.Error()
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		msg = "request cancelled"
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		msg = "request timed out"
	}
	return envelope.NewError(envelope.CodeNetworkError, msg, nil)
}

// serverError maps a non-2xx response. The server's own code and message
// win when the body carries them.
func serverError(status int, body []byte) *envelope.APIError {
	apiErr := envelope.NewError(envelope.HTTPCode(status), http.StatusText(status), nil)
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("unexpected status %d", status)
	}

	var payload struct {
		Error   json.RawMessage `json:"error"`
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details any             `json:"details"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return apiErr
	}

	code, message, details := payload.Code, payload.Message, payload.Details
	if len(payload.Error) > 0 {
		var nested envelope.APIError
		if json.Unmarshal(payload.Error, &nested) == nil {
			code, message, details = nested.Code, nested.Message, nested.Details
		} else {
			// {"error": "plain message"}
			var plain string
			if json.Unmarshal(payload.Error, &plain) == nil {
				message = plain
			}
		}
	}
	if code != "" {
		apiErr.Code = code
	}
	if message != "" {
		apiErr.Message = message
	}
	apiErr.Details = details
	return apiErr
}

var _ ports.RequestExecutor = (*Executor)(nil)
