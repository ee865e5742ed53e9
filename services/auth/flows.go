package auth

import (
	"errors"
	"fmt"

	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/services/logging"
	"github.com/sme-finance/identity/services/mail"
	"github.com/sme-finance/identity/services/refreshtoken"
	"github.com/sme-finance/identity/services/token"
	"github.com/sme-finance/identity/services/user"
	"go.uber.org/zap"
)

var (
	ErrEmailAlreadyVerified     = errors.New("email is already verified")
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")
	ErrPasswordUnchanged        = errors.New("new password must be different from current password")
)

// AccountService runs the account lifecycle flows: signup, email
// verification, password reset and password change. Every credential-
// changing flow ends with a bulk refresh-token invalidation.
type AccountService struct {
	config       *config.Config
	auth         *Service
	users        *user.Store
	verification *token.VerificationStore
	reset        *token.ResetStore
	ledger       refreshtoken.LedgerService
	mailer       mail.Sender
	logger       *logging.Service
}

func NewAccountService(
	cfg *config.Config,
	authSvc *Service,
	users *user.Store,
	verification *token.VerificationStore,
	reset *token.ResetStore,
	ledger refreshtoken.LedgerService,
	mailer mail.Sender,
	logger *logging.Service,
) *AccountService {
	return &AccountService{
		config:       cfg,
		auth:         authSvc,
		users:        users,
		verification: verification,
		reset:        reset,
		ledger:       ledger,
		mailer:       mailer,
		logger:       logger,
	}
}

// Signup creates the user and sends the verification mail. A delivery
// failure fails the whole request; the created user and token stand.
func (s *AccountService) Signup(email, password string) (*user.User, error) {
	if err := s.auth.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Create(email, hash)
	if err != nil {
		return nil, err
	}

	if err := s.sendVerificationEmail(u); err != nil {
		return nil, err
	}

	s.logger.Info("signup completed", zap.Uint("user_id", u.ID))
	return u, nil
}

func (s *AccountService) sendVerificationEmail(u *user.User) error {
	tok, err := s.verification.Issue(u.ID)
	if err != nil {
		return err
	}

	verificationURL := fmt.Sprintf("%s/verify-email?token=%s", s.config.App.FrontendURL, tok.Token)
	data := map[string]any{
		"Email":     u.Email,
		"ActionURL": verificationURL,
		"AppName":   s.config.App.Name,
	}

	if err := s.mailer.SendTemplate("email_verification", []string{u.Email}, "Verify your email address", data); err != nil {
		s.logger.Error("failed to send verification email", zap.Error(err), zap.Uint("user_id", u.ID))
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	return nil
}

// VerifyEmail consumes the token before flipping the flag; under
// concurrent requests only one consumer wins.
func (s *AccountService) VerifyEmail(tokenString string) error {
	tok, err := s.verification.Validate(tokenString)
	if err != nil {
		return err
	}

	if err := s.verification.Consume(tok); err != nil {
		return err
	}

	if err := s.users.MarkEmailVerified(tok.UserID); err != nil {
		return err
	}

	s.logger.Info("email verification completed", zap.Uint("user_id", tok.UserID))
	return nil
}

func (s *AccountService) ResendVerification(u *user.User) error {
	if u.EmailVerified {
		return ErrEmailAlreadyVerified
	}

	return s.sendVerificationEmail(u)
}

// RequestPasswordReset silently succeeds for unknown emails so the
// endpoint cannot be used to probe for accounts.
func (s *AccountService) RequestPasswordReset(email string) error {
	u, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	tok, err := s.reset.Issue(u.ID)
	if err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.config.App.FrontendURL, tok.Token)
	data := map[string]any{
		"Email":     u.Email,
		"ActionURL": resetURL,
		"AppName":   s.config.App.Name,
	}

	if err := s.mailer.SendTemplate("password_reset", []string{u.Email}, "Reset your password", data); err != nil {
		s.logger.Error("failed to send password reset email", zap.Error(err), zap.Uint("user_id", u.ID))
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	return nil
}

// ResetPassword completes a reset. Holding a reset token proves control
// of the mailbox, so the email is marked verified too, and every
// outstanding session is torn down.
func (s *AccountService) ResetPassword(tokenString, newPassword string) error {
	tok, err := s.reset.Validate(tokenString)
	if err != nil {
		return err
	}

	if err := s.auth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.reset.Consume(tok); err != nil {
		return err
	}

	if err := s.users.SetPasswordHash(tok.UserID, hash); err != nil {
		return err
	}

	if err := s.users.MarkEmailVerified(tok.UserID); err != nil {
		return err
	}

	if err := s.ledger.InvalidateAllForUser(tok.UserID); err != nil {
		return err
	}

	s.logger.Info("password reset completed", zap.Uint("user_id", tok.UserID))
	return nil
}

func (s *AccountService) ChangePassword(u *user.User, currentPassword, newPassword string) error {
	if err := s.auth.VerifyPassword(u.PasswordHash, currentPassword); err != nil {
		return ErrCurrentPasswordIncorrect
	}

	if currentPassword == newPassword {
		return ErrPasswordUnchanged
	}

	if err := s.auth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.SetPasswordHash(u.ID, hash); err != nil {
		return err
	}

	if err := s.ledger.InvalidateAllForUser(u.ID); err != nil {
		return err
	}

	s.logger.Info("password changed", zap.Uint("user_id", u.ID))
	return nil
}

// UpdateProfile applies username/email changes; email uniqueness is
// checked excluding the user's own record.
func (s *AccountService) UpdateProfile(u *user.User, username, email string) error {
	if username != "" {
		u.Username = username
	}

	if email != "" {
		normalized := user.NormalizeEmail(email)
		if normalized != u.Email {
			taken, err := s.users.EmailTaken(normalized, u.ID)
			if err != nil {
				return err
			}
			if taken {
				return user.ErrDuplicateEmail
			}
			u.Email = normalized
		}
	}

	return s.users.Save(u)
}
