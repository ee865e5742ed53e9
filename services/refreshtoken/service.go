package refreshtoken

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrRefreshTokenNotFound  = errors.New("refresh token not found")
	ErrRefreshTokenInvalid   = errors.New("refresh token is invalid or expired")
	ErrTokenGenerationFailed = errors.New("failed to generate secure token")
)

type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logging.Service
}

type LedgerService interface {
	Issue(userID uint, rememberMe bool, deviceInfo string) (*TokenData, error)
	Validate(tokenString string) (*RefreshToken, error)
	Invalidate(tokenString string) error
	InvalidateAllForUser(userID uint) error
	CleanupExpiredTokens() error
}

func NewService(db *gorm.DB, config *config.Config, logger *logging.Service) *Service {
	return &Service{
		db:     db,
		config: config,
		logger: logger,
	}
}

// Issue creates a ledger record for a new session. The lifetime depends
// on the remember-me flag; both values are deployment configuration.
func (s *Service) Issue(userID uint, rememberMe bool, deviceInfo string) (*TokenData, error) {
	tokenString, err := s.generateSecureToken()
	if err != nil {
		s.logger.Error("failed to generate refresh token", zap.Error(err))
		return nil, ErrTokenGenerationFailed
	}

	lifetime := s.config.RefreshToken.Expiry
	if rememberMe {
		lifetime = s.config.RefreshToken.RememberExpiry
	}
	expiresAt := time.Now().Add(lifetime)

	record := RefreshToken{
		UserID:     userID,
		TokenHash:  s.hashToken(tokenString),
		ExpiresAt:  expiresAt,
		DeviceInfo: deviceInfo,
	}

	if err := s.db.Create(&record).Error; err != nil {
		s.logger.Error("failed to store refresh token", zap.Error(err))
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	s.logger.Info("refresh token issued",
		zap.Uint("user_id", userID),
		zap.Uint("token_id", record.ID),
		zap.Bool("remember_me", rememberMe),
		zap.Time("expires_at", expiresAt))

	return &TokenData{
		Token:     tokenString,
		TokenID:   record.ID,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) Validate(tokenString string) (*RefreshToken, error) {
	var record RefreshToken
	err := s.db.Where("token_hash = ?", s.hashToken(tokenString)).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("unknown refresh token presented")
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("failed to validate refresh token: %w", err)
	}

	if record.Invalidated {
		s.logger.Warn("invalidated refresh token presented",
			zap.Uint("token_id", record.ID),
			zap.Uint("user_id", record.UserID))
		return nil, ErrRefreshTokenInvalid
	}

	if time.Now().After(record.ExpiresAt) {
		s.logger.Warn("expired refresh token presented",
			zap.Uint("token_id", record.ID),
			zap.Uint("user_id", record.UserID),
			zap.Time("expired_at", record.ExpiresAt))
		return nil, ErrRefreshTokenInvalid
	}

	return &record, nil
}

// Invalidate soft-revokes a single record (logout). Revoking a token
// that is already invalid or unknown is not an error.
func (s *Service) Invalidate(tokenString string) error {
	now := time.Now()
	result := s.db.Model(&RefreshToken{}).
		Where("token_hash = ? AND invalidated = ?", s.hashToken(tokenString), false).
		Updates(map[string]any{
			"invalidated":    true,
			"invalidated_at": now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to invalidate refresh token: %w", result.Error)
	}

	s.logger.Info("refresh token invalidated",
		zap.Int64("affected_rows", result.RowsAffected))

	return nil
}

// InvalidateAllForUser is the privilege-escalation guard: every
// credential-changing event revokes all outstanding sessions. The
// invalidated=false guard keeps original invalidation timestamps and
// leaves other users' records untouched.
func (s *Service) InvalidateAllForUser(userID uint) error {
	now := time.Now()
	result := s.db.Model(&RefreshToken{}).
		Where("user_id = ? AND invalidated = ?", userID, false).
		Updates(map[string]any{
			"invalidated":    true,
			"invalidated_at": now,
		})

	if result.Error != nil {
		s.logger.Error("failed to invalidate user refresh tokens",
			zap.Error(result.Error),
			zap.Uint("user_id", userID))
		return fmt.Errorf("failed to invalidate all refresh tokens: %w", result.Error)
	}

	s.logger.Info("all refresh tokens invalidated for user",
		zap.Uint("user_id", userID),
		zap.Int64("count", result.RowsAffected))

	return nil
}

// CleanupExpiredTokens removes records past their own expiry; the
// audit value of a ledger row ends with its lifetime.
func (s *Service) CleanupExpiredTokens() error {
	result := s.db.Where("expires_at < ?", time.Now()).Delete(&RefreshToken{})
	if result.Error != nil {
		s.logger.Error("failed to cleanup expired refresh tokens", zap.Error(result.Error))
		return fmt.Errorf("failed to cleanup expired refresh tokens: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.logger.Info("cleaned up expired refresh tokens",
			zap.Int64("count", result.RowsAffected))
	}

	return nil
}

func (s *Service) StartCleanupWorker() {
	go func() {
		ticker := time.NewTicker(s.config.RefreshToken.CleanupInterval)
		defer ticker.Stop()

		for range ticker.C {
			if err := s.CleanupExpiredTokens(); err != nil {
				s.logger.Error("refresh token cleanup worker failed", zap.Error(err))
			}
		}
	}()

	s.logger.Info("started refresh token cleanup worker",
		zap.Duration("interval", s.config.RefreshToken.CleanupInterval))
}

func (s *Service) generateSecureToken() (string, error) {
	tokenBytes := make([]byte, s.config.RefreshToken.TokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(tokenBytes), nil
}

func (s *Service) hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
