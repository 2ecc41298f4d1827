package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	metricsvc "github.com/trezcool/tutoring/services/metrics"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// skipWithoutAuthorization makes the JWT middleware optional: anonymous requests go through, bad tokens do not.
func skipWithoutAuthorization(ctx echo.Context) bool {
	return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
}

// metricsMiddleware observes every request once its response is written.
func metricsMiddleware(m *metricsvc.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if err := next(ctx); err != nil {
				ctx.Error(err)
			}

			handler := ctx.Path()
			if handler == "" {
				handler = "unmatched"
			}
			m.ObserveRequest(ctx.Request().Method+" "+handler, ctx.Response().Status, time.Since(start))
			return nil
		}
	}
}
