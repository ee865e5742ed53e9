package ratelimit

import (
	"github.com/sme-finance/identity/config"
)

func ProvideRateLimitStore(cfg *config.Config) Store {
	return NewStore(&cfg.RateLimit)
}
