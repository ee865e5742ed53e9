package auth

import (
	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/services/logging"
	"github.com/sme-finance/identity/services/user"
	"go.uber.org/fx"
)

func ProvideAuthService(cfg *config.Config, users *user.Store, logger *logging.Service) *Service {
	return NewService(cfg, users, logger)
}

var Options = fx.Options(
	fx.Provide(ProvideAuthService),
	fx.Provide(NewAccountService),
)
