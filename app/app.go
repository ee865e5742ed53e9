package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/database"
	"github.com/sme-finance/identity/handlers"
	"github.com/sme-finance/identity/middleware/ratelimit"
	"github.com/sme-finance/identity/server"
	"github.com/sme-finance/identity/services/auth"
	"github.com/sme-finance/identity/services/business"
	"github.com/sme-finance/identity/services/jwt"
	"github.com/sme-finance/identity/services/logging"
	"github.com/sme-finance/identity/services/mail"
	"github.com/sme-finance/identity/services/refreshtoken"
	"github.com/sme-finance/identity/services/session"
	"github.com/sme-finance/identity/services/token"
	"github.com/sme-finance/identity/services/user"
)

type App struct {
	fx     *fx.App
	logger *logging.Service
}

// New assembles the full service graph. Pass a config to override the
// environment-driven one; tests do, main does not.
func New(customConfig *config.Config) *App {
	app := &App{}

	app.fx = fx.New(
		config.NewProvider(customConfig),
		logging.Module,
		fx.Supply(database.WithModels(
			&user.User{},
			&token.Token{},
			&refreshtoken.RefreshToken{},
			&business.Business{},
		)),
		database.Module,
		user.Options,
		token.Options,
		refreshtoken.Options,
		jwt.Options,
		mail.Options,
		auth.Options,
		session.Options,
		business.Options,
		fx.Provide(ratelimit.ProvideRateLimitStore),
		server.NewProvider(),
		handlers.Options,
		fx.Populate(&app.logger),
		fx.WithLogger(func(logger *logging.Service) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Logger()}
		}),
	)

	return app
}

func (a *App) Start(ctx context.Context) error {
	return a.fx.Start(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	return a.fx.Stop(ctx)
}

// Run starts the app and blocks until SIGINT or SIGTERM.
func (a *App) Run() {
	if err := a.Start(context.Background()); err != nil {
		log.Fatalf("failed to start application: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	a.logger.Info("shutdown signal received", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.Stop(ctx); err != nil {
		a.logger.Error("failed to stop application gracefully", zap.Error(err))
	}

	_ = a.logger.Sync()
}
