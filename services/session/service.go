package session

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/mileusna/useragent"
	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/services/jwt"
	"github.com/sme-finance/identity/services/logging"
	"github.com/sme-finance/identity/services/refreshtoken"
	"github.com/sme-finance/identity/services/user"
	"go.uber.org/zap"
)

var (
	ErrRefreshInvalid = errors.New("refresh token is invalid or expired")
	ErrSessionExpired = errors.New("session has expired due to inactivity")
)

// Session is the credential pair handed out at login: a short-lived
// stateless access token and a long-lived revocable refresh token.
type Session struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type Service struct {
	config *config.Config
	users  *user.Store
	ledger refreshtoken.LedgerService
	jwt    *jwt.Service
	logger *logging.Service
}

func NewService(cfg *config.Config, users *user.Store, ledger refreshtoken.LedgerService, jwtSvc *jwt.Service, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		users:  users,
		ledger: ledger,
		jwt:    jwtSvc,
		logger: logger,
	}
}

func (s *Service) IssueSession(u *user.User, rememberMe bool, deviceInfo string) (*Session, error) {
	if err := s.users.SetRememberMe(u.ID, rememberMe); err != nil {
		return nil, err
	}

	accessToken, err := s.jwt.GenerateToken(u.ID, u.Email)
	if err != nil {
		return nil, err
	}

	refreshData, err := s.ledger.Issue(u.ID, rememberMe, deviceInfo)
	if err != nil {
		return nil, err
	}

	s.logger.Info("session issued",
		zap.Uint("user_id", u.ID),
		zap.Bool("remember_me", rememberMe))

	return &Session{
		AccessToken:      accessToken,
		RefreshToken:     refreshData.Token,
		RefreshExpiresAt: refreshData.ExpiresAt,
	}, nil
}

// Refresh mints a new access token against a ledger record. Any
// failure collapses to ErrRefreshInvalid so callers cannot tell
// not-found from expired from invalidated. The refresh record itself
// is not rotated.
func (s *Service) Refresh(refreshToken string) (string, *user.User, error) {
	record, err := s.ledger.Validate(refreshToken)
	if err != nil {
		return "", nil, ErrRefreshInvalid
	}

	u, err := s.users.FindByID(record.UserID)
	if err != nil {
		return "", nil, ErrRefreshInvalid
	}

	accessToken, err := s.jwt.GenerateToken(u.ID, u.Email)
	if err != nil {
		return "", nil, err
	}

	s.Touch(u.ID)

	return accessToken, u, nil
}

func (s *Service) Logout(refreshToken string) error {
	return s.ledger.Invalidate(refreshToken)
}

// Touch records activity; failures are logged and swallowed since
// last_activity is advisory state, not a security boundary.
func (s *Service) Touch(userID uint) {
	if err := s.users.UpdateLastActivity(userID, time.Now()); err != nil {
		s.logger.Warn("failed to update last activity",
			zap.Error(err),
			zap.Uint("user_id", userID))
	}
}

// CheckActivity enforces the inactivity timeout. A request arriving
// past the timeout tears down every session for the user, not just the
// offending request.
func (s *Service) CheckActivity(u *user.User) error {
	if u.LastActivity != nil {
		idle := time.Since(*u.LastActivity)
		if idle > s.config.Session.InactivityTimeout {
			s.logger.Info("forcing session expiry after inactivity",
				zap.Uint("user_id", u.ID),
				zap.Duration("idle", idle))

			if err := s.ledger.InvalidateAllForUser(u.ID); err != nil {
				return err
			}
			return ErrSessionExpired
		}
	}

	s.Touch(u.ID)
	return nil
}

// DeviceInfoFromUserAgent condenses a User-Agent header into the JSON
// blob stored on ledger records.
func DeviceInfoFromUserAgent(uaString string) string {
	if uaString == "" {
		return ""
	}

	ua := useragent.Parse(uaString)
	info := map[string]string{
		"name":    ua.Name,
		"version": ua.Version,
		"os":      ua.OS,
		"device":  ua.Device,
	}

	encoded, err := json.Marshal(info)
	if err != nil {
		return ""
	}
	return string(encoded)
}
