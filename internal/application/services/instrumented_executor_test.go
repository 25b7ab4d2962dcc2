package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/land-registry-gateway/internal/application/services"
	"github.com/avatarctic/land-registry-gateway/internal/core/domain/envelope"
	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
	"github.com/avatarctic/land-registry-gateway/test/mocks"
)

type executorStub struct {
	do    envelope.Result[json.RawMessage]
	fetch envelope.Result[[]byte]
}

func (s executorStub) Do(context.Context, ports.Request) envelope.Result[json.RawMessage] {
	return s.do
}

func (s executorStub) Fetch(context.Context, ports.Request) envelope.Result[[]byte] {
	return s.fetch
}

func TestInstrumentedExecutor_PassesResultsThrough(t *testing.T) {
	observer := mocks.NewGatewayObserverMock()
	recorder := &mocks.UsageRecorderMock{}
	inner := executorStub{
		do:    envelope.Failf[json.RawMessage]("TITLE_NOT_FOUND", "no such title"),
		fetch: envelope.Ok([]byte("csv")),
	}
	e := impl.NewInstrumentedExecutor(inner, observer, recorder, quietLogger())
	ctx := context.Background()

	res := e.Do(ctx, ports.Request{Operation: "getPropertyByTitleNumber", CacheKey: "getPropertyByTitleNumber:title_number=X1", Method: "GET", Path: "/properties/X1"})
	require.False(t, res.Success)
	assert.Equal(t, "TITLE_NOT_FOUND", res.Error.Code)

	body := e.Fetch(ctx, ports.Request{Operation: "downloadBulkResults", Method: "GET", Path: "/bulk-export/job-1"})
	require.True(t, body.Success)
	assert.Equal(t, "csv", string(body.Data))

	assert.Equal(t, []mocks.ObservedCall{
		{Operation: "getPropertyByTitleNumber", Code: "TITLE_NOT_FOUND"},
		{Operation: "downloadBulkResults", Code: "OK"},
	}, observer.UpstreamCalls())

	recorded := recorder.Recorded()
	require.Len(t, recorded, 2)
	assert.False(t, recorded[0].Success)
	assert.Equal(t, "TITLE_NOT_FOUND", recorded[0].ErrorCode)
	assert.Equal(t, "getPropertyByTitleNumber:title_number=X1", recorded[0].CacheKey)
	assert.True(t, recorded[1].Success)
	assert.Equal(t, "/bulk-export/job-1", recorded[1].Path)
	assert.False(t, recorded[1].RequestedAt.IsZero())
}

func TestInstrumentedExecutor_NilCollaborators(t *testing.T) {
	e := impl.NewInstrumentedExecutor(executorStub{do: envelope.Ok(json.RawMessage(`{}`))}, nil, nil, nil)
	assert.NotPanics(t, func() {
		res := e.Do(context.Background(), ports.Request{Operation: "getHealthStatus"})
		assert.True(t, res.Success)
	})
}
