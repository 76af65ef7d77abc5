package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const userIDKey = "auth.userID"

// Middleware rejects requests without a valid "Authorization: Bearer <token>" header
// and stores the authenticated user id on the context.
func Middleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}

			userID, err := issuer.ParseToken(strings.TrimSpace(token))
			if err != nil {
				slog.Debug("Auth: rejected token", "path", c.Path(), "error", err)
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
			}

			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

// UserIDFromContext returns the id stored by Middleware.
func UserIDFromContext(c echo.Context) (int64, bool) {
	userID, ok := c.Get(userIDKey).(int64)
	return userID, ok
}
