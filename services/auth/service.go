package auth

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/services/logging"
	"github.com/sme-finance/identity/services/user"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordHashingFailed = errors.New("failed to hash password")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrAccountDisabled       = errors.New("user account is disabled")
)

// Service verifies credentials and enforces the password policy.
type Service struct {
	config *config.Config
	users  *user.Store
	logger *logging.Service

	// bcrypt runs against this when the email is unknown so response
	// timing does not reveal whether an account exists.
	dummyHash []byte
}

func NewService(cfg *config.Config, users *user.Store, logger *logging.Service) *Service {
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		cfg.Auth.BcryptCost = bcrypt.DefaultCost
	}

	dummyHash, err := bcrypt.GenerateFromPassword([]byte("timing-equalisation-input"), cfg.Auth.BcryptCost)
	if err != nil {
		panic(fmt.Sprintf("failed to prepare dummy bcrypt hash: %v", err))
	}

	return &Service{
		config:    cfg,
		users:     users,
		logger:    logger,
		dummyHash: dummyHash,
	}
}

// ValidatePassword reports the first complexity rule the password
// fails, with a message naming that rule.
func (s *Service) ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < s.config.Auth.MinLength {
		return fmt.Errorf("password must be at least %d characters long", s.config.Auth.MinLength)
	}

	var hasUpper, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	if s.config.Auth.RequireUpper && !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if s.config.Auth.RequireNumber && !hasNumber {
		return errors.New("password must contain at least one number")
	}
	if s.config.Auth.RequireSpecial && !hasSpecial {
		return errors.New("password must contain at least one special character")
	}

	return nil
}

func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.Auth.BcryptCost)
	if err != nil {
		s.logger.Error("password hashing failed", zap.Error(err))
		return "", ErrPasswordHashingFailed
	}
	return string(hash), nil
}

// VerifyPassword compares constant-time via bcrypt.
func (s *Service) VerifyPassword(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Authenticate checks an email/password pair. Unknown email and wrong
// password return the same error so callers cannot probe for accounts.
func (s *Service) Authenticate(email, password string) (*user.User, error) {
	u, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			s.logger.Warn("login attempt for unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.VerifyPassword(u.PasswordHash, password); err != nil {
		s.logger.Warn("login attempt with wrong password", zap.Uint("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}

	if !u.Active {
		s.logger.Warn("login attempt for disabled account", zap.Uint("user_id", u.ID))
		return nil, ErrAccountDisabled
	}

	return u, nil
}
