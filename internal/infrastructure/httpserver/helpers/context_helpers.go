package helpers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// HeaderAPIKey carries the consumer's key.
const HeaderAPIKey = "X-API-Key"

func GetAPIKeyFromRequest(c echo.Context) (string, error) {
	key := strings.TrimSpace(c.Request().Header.Get(HeaderAPIKey))
	if key == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing api key")
	}
	return key, nil
}

// ClientKey identifies the caller for rate limiting: the authenticated
// consumer's name, or the client IP when authentication is off.
func ClientKey(c echo.Context) string {
	if name, ok := GetConsumerRaw(c); ok {
		return "consumer:" + name
	}
	return "ip:" + c.RealIP()
}
