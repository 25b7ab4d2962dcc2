package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/land-registry-gateway/internal/core/domain/envelope"
	"github.com/avatarctic/land-registry-gateway/internal/core/domain/landregistry"
)

// statusFor maps an envelope error to the status returned to consumers.
// Registry HTTP statuses pass through; other upstream failures are 502.
func statusFor(apiErr *envelope.APIError) int {
	if apiErr == nil {
		return http.StatusOK
	}
	if status := apiErr.HTTPStatus(); status >= 400 && status <= 599 {
		return status
	}
	switch apiErr.Code {
	case envelope.CodeInvalidRequest:
		return http.StatusBadRequest
	case envelope.CodeInvalidJobTransition:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func respond[T any](c echo.Context, res envelope.Result[T]) error {
	return c.JSON(statusFor(res.Error), res)
}

func badRequest(c echo.Context, format string, args ...any) error {
	return respond(c, envelope.Failf[any](envelope.CodeInvalidRequest, format, args...))
}

func (s *Server) searchProperties(c echo.Context) error {
	var params landregistry.PropertySearchParams
	if err := c.Bind(&params); err != nil {
		return badRequest(c, "invalid query parameters")
	}
	return respond(c, s.gateway.SearchProperties(c.Request().Context(), params))
}

func (s *Server) getPropertyByTitleNumber(c echo.Context) error {
	return respond(c, s.gateway.GetPropertyByTitleNumber(c.Request().Context(), c.Param("titleNumber")))
}

func (s *Server) lookupOwnership(c echo.Context) error {
	var params landregistry.OwnershipLookupParams
	if err := c.Bind(&params); err != nil {
		return badRequest(c, "invalid query parameters")
	}
	return respond(c, s.gateway.LookupOwnership(c.Request().Context(), params))
}

func (s *Server) searchPricePaid(c echo.Context) error {
	var params landregistry.PricePaidSearchParams
	if err := c.Bind(&params); err != nil {
		return badRequest(c, "invalid query parameters")
	}
	return respond(c, s.gateway.SearchPricePaid(c.Request().Context(), params))
}

func (s *Server) getPriceHistory(c echo.Context) error {
	return respond(c, s.gateway.GetPriceHistory(c.Request().Context(), c.Param("titleNumber")))
}

func (s *Server) startBulkSearch(c echo.Context) error {
	var req landregistry.BulkSearchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	res := s.gateway.StartBulkSearch(c.Request().Context(), req)
	if !res.Success {
		return respond(c, res)
	}
	return c.JSON(http.StatusAccepted, res)
}

func (s *Server) getBulkSearchStatus(c echo.Context) error {
	return respond(c, s.gateway.GetBulkSearchStatus(c.Request().Context(), c.Param("id")))
}

func (s *Server) downloadBulkResults(c echo.Context) error {
	id := c.Param("id")
	res := s.gateway.DownloadBulkResults(c.Request().Context(), id)
	if !res.Success {
		return respond(c, res)
	}
	if res.Data == nil {
		return c.JSON(http.StatusAccepted, envelope.Ok(map[string]any{"id": id, "ready": false}))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "bulk-search-"+id))
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, res.Data)
}

func (s *Server) getRegistryHealth(c echo.Context) error {
	return respond(c, s.gateway.GetHealthStatus(c.Request().Context()))
}

func (s *Server) clearAPICache(c echo.Context) error {
	return respond(c, s.gateway.ClearAPICache(c.Request().Context()))
}

func (s *Server) getCacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, envelope.Ok(s.gateway.CacheStats(c.Request().Context())))
}

// invalidateCacheEntries drops local entries named by repeated key=
// parameters. Dropping everything requires all=true.
func (s *Server) invalidateCacheEntries(c echo.Context) error {
	ctx := c.Request().Context()
	keys := c.QueryParams()["key"]
	if len(keys) == 0 {
		if c.QueryParam("all") != "true" {
			return badRequest(c, "name at least one key or pass all=true")
		}
		size := s.gateway.CacheStats(ctx).Size
		s.gateway.InvalidateCache(ctx)
		return c.JSON(http.StatusOK, envelope.Ok(map[string]any{"invalidated": size}))
	}
	s.gateway.InvalidateCache(ctx, keys...)
	return c.JSON(http.StatusOK, envelope.Ok(map[string]any{"invalidated": keys}))
}
