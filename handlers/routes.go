package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/middleware/activity"
	jwtmw "github.com/sme-finance/identity/middleware/jwt"
	"github.com/sme-finance/identity/middleware/ratelimit"
	"github.com/sme-finance/identity/server"
	"github.com/sme-finance/identity/services/jwt"
	"github.com/sme-finance/identity/services/logging"
	"github.com/sme-finance/identity/services/session"
	"github.com/sme-finance/identity/services/user"
)

// RegisterRoutes wires the API surface. Authenticated routes run the
// bearer guard first and the inactivity check second, so a handler
// never sees a request from an expired session.
func RegisterRoutes(
	srv *server.Server,
	cfg *config.Config,
	authHandler *AuthHandler,
	businessHandler *BusinessHandler,
	jwtSvc *jwt.Service,
	sessions *session.Service,
	users *user.Store,
	rateStore ratelimit.Store,
	logger *logging.Service,
) {
	requireAuth := jwtmw.RequireJWT(jwtSvc)
	checkActivity := activity.Middleware(activity.Config{
		Sessions: sessions,
		Users:    users,
		Logger:   logger,
	})

	limited := func(scope string) echo.MiddlewareFunc {
		if !cfg.RateLimit.Enabled {
			return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
		}
		return ratelimit.Middleware(&ratelimit.Config{
			Store:        rateStore,
			Rate:         cfg.RateLimit.Rate,
			Period:       cfg.RateLimit.Period,
			KeyGenerator: ratelimit.ScopedKeyGenerator(scope),
		})
	}

	srv.Get("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	authGroup := srv.Group("/api/auth")
	authGroup.POST("/signup", authHandler.Signup, limited("signup"))
	authGroup.POST("/login", authHandler.Login, limited("login"))
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/verify-email", authHandler.VerifyEmail)
	authGroup.POST("/password-reset-request", authHandler.PasswordResetRequest, limited("password-reset"))
	authGroup.POST("/password-reset", authHandler.PasswordReset)

	authedGroup := srv.Group("/api/auth", requireAuth, checkActivity)
	authedGroup.POST("/logout", authHandler.Logout)
	authedGroup.POST("/resend-verification", authHandler.ResendVerification, limited("resend-verification"))
	authedGroup.GET("/me", authHandler.Me)
	authedGroup.PUT("/profile", authHandler.UpdateProfile)
	authedGroup.PUT("/change-password", authHandler.ChangePassword)

	businessGroup := srv.Group("/api/business", requireAuth, checkActivity)
	businessGroup.POST("/setup", businessHandler.Setup)
	businessGroup.GET("/me", businessHandler.Me)
	businessGroup.PUT("/update", businessHandler.Update)
}
