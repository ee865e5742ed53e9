package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sme-finance/identity/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("a user with this email already exists")
)

// Store is the credential store: user records keyed by their unique,
// lower-cased email address.
type Store struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewStore(db *gorm.DB, logger *logging.Service) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) Create(email, passwordHash string) (*User, error) {
	email = NormalizeEmail(email)

	u := &User{
		Email:        email,
		PasswordHash: passwordHash,
		Active:       true,
	}

	if err := s.db.Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			s.logger.Warn("signup attempted with existing email")
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", zap.Uint("user_id", u.ID))
	return u, nil
}

func (s *Store) FindByEmail(email string) (*User, error) {
	var u User
	err := s.db.Where("email = ?", NormalizeEmail(email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}
	return &u, nil
}

func (s *Store) FindByID(id uint) (*User, error) {
	var u User
	err := s.db.First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user by id: %w", err)
	}
	return &u, nil
}

func (s *Store) EmailTaken(email string, excludeUserID uint) (bool, error) {
	var count int64
	err := s.db.Model(&User{}).
		Where("email = ? AND id <> ?", NormalizeEmail(email), excludeUserID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	return count > 0, nil
}

func (s *Store) Save(u *User) error {
	if err := s.db.Save(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *Store) SetPasswordHash(userID uint, passwordHash string) error {
	err := s.db.Model(&User{}).
		Where("id = ?", userID).
		Update("password_hash", passwordHash).Error
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}

	s.logger.Info("password hash updated", zap.Uint("user_id", userID))
	return nil
}

// MarkEmailVerified flips email_verified exactly once; repeated calls
// leave the original verification timestamp intact.
func (s *Store) MarkEmailVerified(userID uint) error {
	now := time.Now()
	err := s.db.Model(&User{}).
		Where("id = ? AND email_verified = ?", userID, false).
		Updates(map[string]any{
			"email_verified":    true,
			"email_verified_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark email as verified: %w", err)
	}

	s.logger.Info("email verified", zap.Uint("user_id", userID))
	return nil
}

// UpdateLastActivity is last-write-wins; concurrent touches are fine
// since the value only advances with the wall clock.
func (s *Store) UpdateLastActivity(userID uint, at time.Time) error {
	err := s.db.Model(&User{}).
		Where("id = ?", userID).
		Update("last_activity", at).Error
	if err != nil {
		return fmt.Errorf("failed to update last activity: %w", err)
	}
	return nil
}

func (s *Store) SetRememberMe(userID uint, rememberMe bool) error {
	err := s.db.Model(&User{}).
		Where("id = ?", userID).
		Update("remember_me", rememberMe).Error
	if err != nil {
		return fmt.Errorf("failed to update remember-me flag: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}
