package token

import (
	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// VerificationStore and ResetStore are the two purpose-bound views of
// the single-use token table.
type VerificationStore struct {
	*Store
}

type ResetStore struct {
	*Store
}

func ProvideVerificationStore(db *gorm.DB, cfg *config.Config, logger *logging.Service) *VerificationStore {
	return &VerificationStore{Store: NewStore(db, PurposeEmailVerification, cfg, logger)}
}

func ProvideResetStore(db *gorm.DB, cfg *config.Config, logger *logging.Service) *ResetStore {
	return &ResetStore{Store: NewStore(db, PurposePasswordReset, cfg, logger)}
}

var Options = fx.Options(
	fx.Provide(ProvideVerificationStore),
	fx.Provide(ProvideResetStore),
)
