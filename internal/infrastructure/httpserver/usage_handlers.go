package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/land-registry-gateway/internal/core/domain/envelope"
	"github.com/avatarctic/land-registry-gateway/internal/core/domain/usage"
)

const (
	defaultUsageLimit = 50
	maxUsageLimit     = 500
)

func parseUsageFilter(c echo.Context) (*usage.CallFilter, error) {
	filter := &usage.CallFilter{Limit: defaultUsageLimit}
	if op := c.QueryParam("operation"); op != "" {
		filter.Operation = &op
	}
	if raw := c.QueryParam("success"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, err
		}
		filter.Success = &b
	}
	for name, dst := range map[string]**time.Time{"start_time": &filter.StartTime, "end_time": &filter.EndTime} {
		if raw := c.QueryParam(name); raw != "" {
			ts, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, err
			}
			*dst = &ts
		}
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, strconv.ErrSyntax
		}
		filter.Limit = min(n, maxUsageLimit)
	}
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, strconv.ErrSyntax
		}
		filter.Offset = n
	}
	return filter, nil
}

func (s *Server) getUsageCalls(c echo.Context) error {
	filter, err := parseUsageFilter(c)
	if err != nil {
		return badRequest(c, "invalid usage filter: %v", err)
	}
	calls, total, err := s.usageSvc.GetCalls(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if calls == nil {
		calls = []*usage.Call{}
	}
	return c.JSON(http.StatusOK, envelope.Ok(map[string]interface{}{"calls": calls, "total": total}))
}

func (s *Server) getUsageSummary(c echo.Context) error {
	filter, err := parseUsageFilter(c)
	if err != nil {
		return badRequest(c, "invalid usage filter: %v", err)
	}
	counts, err := s.usageSvc.Summarize(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if counts == nil {
		counts = []usage.OperationCount{}
	}
	return c.JSON(http.StatusOK, envelope.Ok(counts))
}
