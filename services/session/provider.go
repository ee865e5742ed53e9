package session

import (
	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/services/jwt"
	"github.com/sme-finance/identity/services/logging"
	"github.com/sme-finance/identity/services/refreshtoken"
	"github.com/sme-finance/identity/services/user"
	"go.uber.org/fx"
)

func ProvideSessionService(cfg *config.Config, users *user.Store, ledger refreshtoken.LedgerService, jwtSvc *jwt.Service, logger *logging.Service) *Service {
	return NewService(cfg, users, ledger, jwtSvc, logger)
}

var Options = fx.Options(
	fx.Provide(ProvideSessionService),
)
