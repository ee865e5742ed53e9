package business

import (
	"github.com/sme-finance/identity/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideBusinessService(db *gorm.DB, logger *logging.Service) *Service {
	return NewService(db, logger)
}

var Options = fx.Options(
	fx.Provide(ProvideBusinessService),
)
