package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig          `envPrefix:"APP_"`
	Server       ServerConfig       `envPrefix:"SERVER_"`
	Log          LogConfig          `envPrefix:"LOG_"`
	Database     DatabaseConfig     `envPrefix:"DATABASE_"`
	Auth         AuthConfig         `envPrefix:"AUTH_"`
	JWT          JWTConfig          `envPrefix:"JWT_"`
	RefreshToken RefreshTokenConfig `envPrefix:"REFRESH_TOKEN_"`
	Session      SessionConfig      `envPrefix:"SESSION_"`
	RateLimit    RateLimitConfig    `envPrefix:"RATE_LIMIT_"`
	Mail         MailConfig         `envPrefix:"MAIL_"`
}

type AppConfig struct {
	Name        string `env:"NAME" envDefault:"identity"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"localhost"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"identity.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type AuthConfig struct {
	MinLength      int  `env:"MIN_LENGTH" envDefault:"8"`
	RequireUpper   bool `env:"REQUIRE_UPPER" envDefault:"true"`
	RequireNumber  bool `env:"REQUIRE_NUMBER" envDefault:"true"`
	RequireSpecial bool `env:"REQUIRE_SPECIAL" envDefault:"true"`
	BcryptCost     int  `env:"BCRYPT_COST" envDefault:"10"`

	TokenLength int           `env:"TOKEN_LENGTH" envDefault:"32"`
	TokenExpiry time.Duration `env:"TOKEN_EXPIRY" envDefault:"30m"`
}

type JWTConfig struct {
	SecretKey    string        `env:"SECRET_KEY"`
	Issuer       string        `env:"ISSUER" envDefault:"identity"`
	AccessExpiry time.Duration `env:"ACCESS_EXPIRY" envDefault:"15m"`
}

type RefreshTokenConfig struct {
	TokenLength     int           `env:"TOKEN_LENGTH" envDefault:"32"`
	Expiry          time.Duration `env:"EXPIRY" envDefault:"24h"`
	RememberExpiry  time.Duration `env:"REMEMBER_EXPIRY" envDefault:"720h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
	CookieName      string        `env:"COOKIE_NAME" envDefault:"refresh_token"`
	CookieSecure    bool          `env:"COOKIE_SECURE" envDefault:"true"`
	CookieSameSite  string        `env:"COOKIE_SAMESITE" envDefault:"lax"`
}

type SessionConfig struct {
	InactivityTimeout time.Duration `env:"INACTIVITY_TIMEOUT" envDefault:"30m"`
}

type RateLimitConfig struct {
	Enabled   bool          `env:"ENABLED" envDefault:"true"`
	Rate      int           `env:"RATE" envDefault:"5"`
	Period    time.Duration `env:"PERIOD" envDefault:"15m"`
	Store     string        `env:"STORE" envDefault:"memory"`
	RedisAddr string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
}

type MailConfig struct {
	Host         string `env:"HOST" envDefault:"localhost"`
	Port         int    `env:"PORT" envDefault:"587"`
	Username     string `env:"USERNAME"`
	Password     string `env:"PASSWORD"`
	Encryption   string `env:"ENCRYPTION" envDefault:"starttls"`
	FromAddress  string `env:"FROM_ADDRESS" envDefault:"noreply@sme-finance.com"`
	FromName     string `env:"FROM_NAME" envDefault:"SME Finance"`
	TemplatesDir string `env:"TEMPLATES_DIR" envDefault:"templates/mail"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if appConfig, ok := cfg.(*Config); ok {
		if err := validateJWTConfig(&appConfig.JWT); err != nil {
			return err
		}
		if err := validateRefreshTokenConfig(&appConfig.RefreshToken); err != nil {
			return err
		}
	}

	return nil
}

func validateJWTConfig(cfg *JWTConfig) error {
	if len(cfg.SecretKey) < 32 {
		return fmt.Errorf("JWT secret key must be at least 32 characters long")
	}

	weakPatterns := []string{"password", "secret", "test", "example", "default", "change"}
	lowered := strings.ToLower(cfg.SecretKey)
	for _, pattern := range weakPatterns {
		if strings.Contains(lowered, pattern) {
			return fmt.Errorf("JWT secret key contains weak patterns (%q)", pattern)
		}
	}

	return nil
}

func validateRefreshTokenConfig(cfg *RefreshTokenConfig) error {
	if cfg.TokenLength < 16 {
		return fmt.Errorf("refresh token length must be at least 16 bytes")
	}
	if cfg.TokenLength > 128 {
		return fmt.Errorf("refresh token length cannot exceed 128 bytes")
	}
	if cfg.RememberExpiry < cfg.Expiry {
		return fmt.Errorf("remember-me refresh expiry cannot be shorter than the default expiry")
	}
	return nil
}
