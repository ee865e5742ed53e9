package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/services/jwt"
	"github.com/sme-finance/identity/services/refreshtoken"
	"github.com/sme-finance/identity/services/user"
	"github.com/sme-finance/identity/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func getTestSessionConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			SecretKey:    "0123456789abcdef0123456789abcdef01234567",
			Issuer:       "identity",
			AccessExpiry: 15 * time.Minute,
		},
		RefreshToken: config.RefreshTokenConfig{
			TokenLength:    32,
			Expiry:         24 * time.Hour,
			RememberExpiry: 720 * time.Hour,
		},
		Session: config.SessionConfig{
			InactivityTimeout: 30 * time.Minute,
		},
	}
}

func newTestSessionService(t *testing.T) (*Service, *user.Store, refreshtoken.LedgerService, *gorm.DB) {
	t.Helper()

	cfg := getTestSessionConfig()
	db := testutils.SetupTestDB(t, &user.User{}, &refreshtoken.RefreshToken{})
	users := user.NewStore(db, nil)
	ledger := refreshtoken.NewService(db, cfg, nil)
	jwtSvc := jwt.NewService(cfg, nil)

	return NewService(cfg, users, ledger, jwtSvc, nil), users, ledger, db
}

func createTestUser(t *testing.T, users *user.Store, email string) *user.User {
	t.Helper()
	u, err := users.Create(email, "hash")
	require.NoError(t, err)
	return u
}

func TestService_IssueSession(t *testing.T) {
	service, users, _, db := newTestSessionService(t)
	u := createTestUser(t, users, "alice@example.com")

	t.Run("default lifetime", func(t *testing.T) {
		before := time.Now()
		sess, err := service.IssueSession(u, false, "")

		require.NoError(t, err)
		assert.NotEmpty(t, sess.AccessToken)
		assert.NotEmpty(t, sess.RefreshToken)
		assert.WithinDuration(t, before.Add(24*time.Hour), sess.RefreshExpiresAt, 2*time.Second)
	})

	t.Run("remember-me lifetime and flag", func(t *testing.T) {
		before := time.Now()
		sess, err := service.IssueSession(u, true, "")

		require.NoError(t, err)
		assert.WithinDuration(t, before.Add(720*time.Hour), sess.RefreshExpiresAt, 2*time.Second)

		var stored user.User
		require.NoError(t, db.First(&stored, u.ID).Error)
		assert.True(t, stored.RememberMe)
	})

	t.Run("access and refresh are distinct credentials", func(t *testing.T) {
		sess, err := service.IssueSession(u, false, "")
		require.NoError(t, err)
		assert.NotEqual(t, sess.AccessToken, sess.RefreshToken)
	})
}

func TestService_Refresh(t *testing.T) {
	service, users, _, db := newTestSessionService(t)
	u := createTestUser(t, users, "bob@example.com")

	sess, err := service.IssueSession(u, false, "")
	require.NoError(t, err)

	t.Run("valid refresh mints a new access token and touches activity", func(t *testing.T) {
		accessToken, refreshedUser, err := service.Refresh(sess.RefreshToken)

		require.NoError(t, err)
		assert.NotEmpty(t, accessToken)
		assert.Equal(t, u.ID, refreshedUser.ID)

		var stored user.User
		require.NoError(t, db.First(&stored, u.ID).Error)
		assert.NotNil(t, stored.LastActivity)
	})

	t.Run("refresh does not rotate the refresh record", func(t *testing.T) {
		_, _, err := service.Refresh(sess.RefreshToken)
		require.NoError(t, err)
		_, _, err = service.Refresh(sess.RefreshToken)
		require.NoError(t, err)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, _, err := service.Refresh("bogus")
		require.ErrorIs(t, err, ErrRefreshInvalid)
	})

	t.Run("logged-out token fails uniformly", func(t *testing.T) {
		require.NoError(t, service.Logout(sess.RefreshToken))

		_, _, err := service.Refresh(sess.RefreshToken)
		require.ErrorIs(t, err, ErrRefreshInvalid)
	})
}

func TestService_CheckActivity(t *testing.T) {
	t.Run("no recorded activity proceeds and touches", func(t *testing.T) {
		service, users, _, db := newTestSessionService(t)
		u := createTestUser(t, users, "carol@example.com")

		require.NoError(t, service.CheckActivity(u))

		var stored user.User
		require.NoError(t, db.First(&stored, u.ID).Error)
		assert.NotNil(t, stored.LastActivity)
	})

	t.Run("recent activity proceeds", func(t *testing.T) {
		service, users, _, _ := newTestSessionService(t)
		u := createTestUser(t, users, "dave@example.com")
		recent := time.Now().Add(-time.Minute)
		u.LastActivity = &recent

		require.NoError(t, service.CheckActivity(u))
	})

	t.Run("stale activity expires the session and tears down all refresh tokens", func(t *testing.T) {
		service, users, ledger, _ := newTestSessionService(t)
		u := createTestUser(t, users, "erin@example.com")

		sess, err := service.IssueSession(u, false, "")
		require.NoError(t, err)
		other, err := service.IssueSession(u, true, "")
		require.NoError(t, err)

		stale := time.Now().Add(-time.Hour)
		u.LastActivity = &stale

		err = service.CheckActivity(u)
		require.ErrorIs(t, err, ErrSessionExpired)

		_, err = ledger.Validate(sess.RefreshToken)
		require.ErrorIs(t, err, refreshtoken.ErrRefreshTokenInvalid)
		_, err = ledger.Validate(other.RefreshToken)
		require.ErrorIs(t, err, refreshtoken.ErrRefreshTokenInvalid)
	})
}

func TestDeviceInfoFromUserAgent(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, DeviceInfoFromUserAgent(""))
	})

	t.Run("browser user agent", func(t *testing.T) {
		raw := DeviceInfoFromUserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		require.NotEmpty(t, raw)

		var info map[string]string
		require.NoError(t, json.Unmarshal([]byte(raw), &info))
		assert.Equal(t, "Chrome", info["name"])
		assert.Equal(t, "Linux", info["os"])
	})
}
