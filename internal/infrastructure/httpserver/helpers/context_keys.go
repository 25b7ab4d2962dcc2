package helpers

import (
	"github.com/labstack/echo/v4"
)

type ctxKey string

const (
	keyConsumer ctxKey = "consumer"
)

func SetConsumer(c echo.Context, name string) { c.Set(string(keyConsumer), name) }
func GetConsumerRaw(c echo.Context) (string, bool) {
	v := c.Get(string(keyConsumer))
	s, ok := v.(string)
	return s, ok && s != ""
}
