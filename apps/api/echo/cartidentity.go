package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/cart"
	"github.com/trezcool/tutoring/core/session"
)

var contextCartIdentityKey = "cartIdentity"

// cartIdentityMiddleware collects the cart identity signals of the request. It never fails the request:
// without a usable session the session signal is simply missing.
func cartIdentityMiddleware(conf *core.Config, sessions *session.Manager, logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			rc := &cart.RequestContext{CartToken: requestCartToken(ctx, conf.Cart)}
			if claims, err := getContextClaims(ctx); err == nil {
				rc.UserID = claims.Subject
			}

			if sessions != nil {
				var cookieValue string
				if cookie, err := ctx.Cookie(conf.Cart.SessionCookie); err == nil {
					cookieValue = cookie.Value
				}
				sess := sessions.Load(cookieValue, func(value string) {
					ctx.SetCookie(&http.Cookie{
						Name:     conf.Cart.SessionCookie,
						Value:    value,
						Path:     "/",
						MaxAge:   int(conf.Redis.SessionTTL.Seconds()),
						HttpOnly: true,
						SameSite: http.SameSiteLaxMode,
					})
				})

				sid, err := sess.CartSessionID(ctx.Request().Context())
				if err != nil {
					logger.Warn("session storage unavailable", err)
				} else {
					rc.SessionID = sid
					rc.Session = sess
				}
			}

			ctx.Set(contextCartIdentityKey, rc)
			return next(ctx)
		}
	}
}

// requestCartToken returns the client cart token from the header, else from the JSON body.
func requestCartToken(ctx echo.Context, conf core.CartConfig) string {
	if token := strings.TrimSpace(ctx.Request().Header.Get(conf.TokenHeader)); token != "" {
		return token
	}
	return bodyCartToken(ctx, conf.TokenField)
}

// bodyCartToken peeks at the JSON body; the body is restored for the handler.
func bodyCartToken(ctx echo.Context, field string) string {
	req := ctx.Request()
	if req.Body == nil || req.ContentLength == 0 ||
		!strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return ""
	}

	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}

	var data map[string]json.RawMessage
	if err = json.Unmarshal(body, &data); err != nil {
		return ""
	}
	var token string
	if raw, ok := data[field]; !ok || json.Unmarshal(raw, &token) != nil {
		return ""
	}
	return strings.TrimSpace(token)
}

func contextCartIdentity(ctx echo.Context) *cart.RequestContext {
	if rc, ok := ctx.Get(contextCartIdentityKey).(*cart.RequestContext); ok {
		return rc
	}
	return &cart.RequestContext{}
}
