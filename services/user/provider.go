package user

import (
	"github.com/sme-finance/identity/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideUserStore(db *gorm.DB, logger *logging.Service) *Store {
	return NewStore(db, logger)
}

var Options = fx.Options(
	fx.Provide(ProvideUserStore),
)
