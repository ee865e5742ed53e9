package activity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	jwtmw "github.com/sme-finance/identity/middleware/jwt"
	"github.com/sme-finance/identity/services/logging"
	"github.com/sme-finance/identity/services/session"
	"github.com/sme-finance/identity/services/user"
	"go.uber.org/zap"
)

const UserKey = "_activity_user"

type Config struct {
	Sessions *session.Service
	Users    *user.Store
	Logger   *logging.Service
}

// Middleware enforces the inactivity timeout before any handler sees
// the request. It runs after RequireJWT, loads the user once and makes
// it available to handlers. A request past the timeout gets a 401 and
// every refresh token the user holds is invalidated.
func Middleware(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := jwtmw.GetUserID(c)
			if userID == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}

			u, err := cfg.Users.FindByID(userID)
			if err != nil {
				if errors.Is(err, user.ErrUserNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
				}
				cfg.Logger.Error("failed to load user for activity check",
					zap.Error(err),
					zap.Uint("user_id", userID))
				return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
			}

			if err := cfg.Sessions.CheckActivity(u); err != nil {
				if errors.Is(err, session.ErrSessionExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, map[string]any{
						"error":   true,
						"message": "Your session has expired due to inactivity. Please login again.",
						"code":    "session_expired",
					})
				}
				cfg.Logger.Error("activity check failed", zap.Error(err), zap.Uint("user_id", userID))
				return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
			}

			c.Set(UserKey, u)

			return next(c)
		}
	}
}

func GetUser(c echo.Context) *user.User {
	if u, ok := c.Get(UserKey).(*user.User); ok {
		return u
	}
	return nil
}
