package refreshtoken

import (
	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideLedgerService(db *gorm.DB, config *config.Config, logger *logging.Service) LedgerService {
	service := NewService(db, config, logger)

	if config.RefreshToken.CleanupInterval > 0 {
		service.StartCleanupWorker()
	}

	return service
}

var Options = fx.Options(
	fx.Provide(ProvideLedgerService),
)
