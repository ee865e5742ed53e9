package mail

import (
	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/services/logging"
	"go.uber.org/fx"
)

func ProvideMailService(cfg *config.Config, logger *logging.Service) (*Service, error) {
	return NewService(&cfg.Mail, logger)
}

func ProvideSender(svc *Service) Sender {
	return svc
}

var Options = fx.Options(
	fx.Provide(ProvideMailService),
	fx.Provide(ProvideSender),
)
