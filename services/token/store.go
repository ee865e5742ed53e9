package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrTokenNotFound         = errors.New("token not found")
	ErrTokenInvalid          = errors.New("token is invalid or expired")
	ErrTokenGenerationFailed = errors.New("failed to generate secure token")
)

// Store issues and consumes single-use tokens of one purpose. A token
// is valid iff it has not been consumed and its creation time is within
// the configured expiry window.
type Store struct {
	db      *gorm.DB
	purpose Purpose
	config  *config.Config
	logger  *logging.Service
}

func NewStore(db *gorm.DB, purpose Purpose, cfg *config.Config, logger *logging.Service) *Store {
	return &Store{
		db:      db,
		purpose: purpose,
		config:  cfg,
		logger:  logger,
	}
}

func (s *Store) Issue(userID uint) (*Token, error) {
	tokenString, err := s.generateSecureToken()
	if err != nil {
		s.logger.Error("failed to generate single-use token", zap.Error(err))
		return nil, ErrTokenGenerationFailed
	}

	tok := &Token{
		UserID:  userID,
		Token:   tokenString,
		Purpose: s.purpose,
	}

	if err := s.db.Create(tok).Error; err != nil {
		s.logger.Error("failed to store single-use token",
			zap.Error(err),
			zap.String("purpose", string(s.purpose)))
		return nil, fmt.Errorf("failed to store %s token: %w", s.purpose, err)
	}

	s.logger.Info("single-use token issued",
		zap.String("purpose", string(s.purpose)),
		zap.Uint("user_id", userID))

	return tok, nil
}

func (s *Store) Validate(tokenString string) (*Token, error) {
	var tok Token
	err := s.db.Where("token = ? AND purpose = ?", tokenString, s.purpose).First(&tok).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("unknown single-use token presented",
				zap.String("purpose", string(s.purpose)))
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to validate %s token: %w", s.purpose, err)
	}

	if tok.Consumed {
		s.logger.Warn("consumed single-use token presented",
			zap.String("purpose", string(s.purpose)),
			zap.Uint("user_id", tok.UserID))
		return nil, ErrTokenInvalid
	}

	if time.Now().After(tok.CreatedAt.Add(s.config.Auth.TokenExpiry)) {
		s.logger.Warn("expired single-use token presented",
			zap.String("purpose", string(s.purpose)),
			zap.Uint("user_id", tok.UserID),
			zap.Time("created_at", tok.CreatedAt))
		return nil, ErrTokenInvalid
	}

	return &tok, nil
}

// Consume marks the token used. The consumed=false guard makes this a
// compare-and-set: of N concurrent consumers exactly one succeeds, the
// rest get ErrTokenInvalid.
func (s *Store) Consume(tok *Token) error {
	now := time.Now()
	result := s.db.Model(&Token{}).
		Where("id = ? AND consumed = ?", tok.ID, false).
		Updates(map[string]any{
			"consumed":    true,
			"consumed_at": now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to consume %s token: %w", s.purpose, result.Error)
	}

	if result.RowsAffected == 0 {
		s.logger.Warn("concurrent or repeated token consumption blocked",
			zap.String("purpose", string(s.purpose)),
			zap.Uint("user_id", tok.UserID))
		return ErrTokenInvalid
	}

	tok.Consumed = true
	tok.ConsumedAt = &now

	s.logger.Info("single-use token consumed",
		zap.String("purpose", string(s.purpose)),
		zap.Uint("user_id", tok.UserID))

	return nil
}

func (s *Store) generateSecureToken() (string, error) {
	tokenBytes := make([]byte, s.config.Auth.TokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(tokenBytes), nil
}
