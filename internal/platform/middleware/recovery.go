package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Recovery converts panics into 500 responses instead of killing the server.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						err = fmt.Errorf("%v", r)
					}

					stack := make([]byte, 4<<10)
					length := runtime.Stack(stack, false)

					rid, _ := c.Get("request_id").(string)
					log.Error().
						Err(err).
						Str("request_id", rid).
						Str("path", c.Request().URL.Path).
						Bytes("stack", stack[:length]).
						Msg("panic recovered")

					_ = c.JSON(http.StatusInternalServerError, map[string]string{
						"error": "internal server error",
					})
				}
			}()
			return next(c)
		}
	}
}
