package jwt

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sme-finance/identity/services/jwt"
)

const (
	UserIDKey = "_jwt_user_id"
	ClaimsKey = "_jwt_claims"
)

// RequireJWT guards a route with a bearer access token. Verification
// is signature + expiry only; no store lookup happens here.
func RequireJWT(jwtService *jwt.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Access token required")
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				switch err {
				case jwt.ErrExpiredToken:
					return echo.NewHTTPError(http.StatusUnauthorized, "Access token has expired")
				case jwt.ErrMalformedToken:
					return echo.NewHTTPError(http.StatusUnauthorized, "Malformed access token")
				case jwt.ErrInvalidSignature:
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid access token signature")
				default:
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid access token")
				}
			}

			c.Set(UserIDKey, claims.UserID)
			c.Set(ClaimsKey, claims)

			return next(c)
		}
	}
}

func GetUserID(c echo.Context) uint {
	if userID, ok := c.Get(UserIDKey).(uint); ok {
		return userID
	}
	return 0
}

func GetClaims(c echo.Context) *jwt.Claims {
	if claims, ok := c.Get(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}
