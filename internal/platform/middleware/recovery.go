package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medplatform/dossier/internal/platform/auth"
)

// Recovery turns a handler panic into a 500. The panic value is kept as the
// internal error and logged with the route and the acting user.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				rid, _ := c.Get("request_id").(string)
				cause, ok := r.(error)
				if !ok {
					cause = fmt.Errorf("%v", r)
				}
				evt := logger.Error().
					Err(cause).
					Str("request_id", rid).
					Str("method", c.Request().Method).
					Str("route", c.Path()).
					Bytes("stack", debug.Stack())
				if a, ok := auth.ActorFromContext(c.Request().Context()); ok {
					evt = evt.Int64("user_id", a.UserID)
				}
				evt.Msg("panic recovered")

				err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error").
					SetInternal(fmt.Errorf("panic: %w", cause))
			}()
			return next(c)
		}
	}
}
