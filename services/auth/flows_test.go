package auth

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/services/refreshtoken"
	"github.com/sme-finance/identity/services/token"
	"github.com/sme-finance/identity/services/user"
	"github.com/sme-finance/identity/testutils"
)

type sentMail struct {
	template string
	to       []string
	subject  string
	data     map[string]any
}

type mockSender struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (m *mockSender) SendTemplate(templateName string, to []string, subject string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return errors.New("smtp unreachable")
	}

	m.sent = append(m.sent, sentMail{
		template: templateName,
		to:       to,
		subject:  subject,
		data:     data,
	})
	return nil
}

func (m *mockSender) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func tokenFromMail(t *testing.T, sm sentMail) string {
	t.Helper()

	actionURL, ok := sm.data["ActionURL"].(string)
	require.True(t, ok)

	parts := strings.SplitN(actionURL, "token=", 2)
	require.Len(t, parts, 2)
	return parts[1]
}

type accountFixture struct {
	accounts *AccountService
	auth     *Service
	users    *user.Store
	ledger   refreshtoken.LedgerService
	mailer   *mockSender
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{
			Name:        "identity",
			FrontendURL: "http://localhost:3000",
		},
		Auth: config.AuthConfig{
			MinLength:      8,
			RequireUpper:   true,
			RequireNumber:  true,
			RequireSpecial: true,
			BcryptCost:     4,
			TokenLength:    32,
			TokenExpiry:    30 * time.Minute,
		},
		RefreshToken: config.RefreshTokenConfig{
			TokenLength:    32,
			Expiry:         24 * time.Hour,
			RememberExpiry: 720 * time.Hour,
		},
	}

	db := testutils.SetupTestDB(t, &user.User{}, &token.Token{}, &refreshtoken.RefreshToken{})
	users := user.NewStore(db, nil)
	authSvc := NewService(cfg, users, nil)
	verification := &token.VerificationStore{Store: token.NewStore(db, token.PurposeEmailVerification, cfg, nil)}
	reset := &token.ResetStore{Store: token.NewStore(db, token.PurposePasswordReset, cfg, nil)}
	ledger := refreshtoken.NewService(db, cfg, nil)
	mailer := &mockSender{}

	accounts := NewAccountService(cfg, authSvc, users, verification, reset, ledger, mailer, nil)

	return &accountFixture{
		accounts: accounts,
		auth:     authSvc,
		users:    users,
		ledger:   ledger,
		mailer:   mailer,
	}
}

func TestAccountService_Signup(t *testing.T) {
	t.Run("creates user and sends verification mail", func(t *testing.T) {
		f := newAccountFixture(t)

		u, err := f.accounts.Signup("alice@example.com", "Str0ng!pass")
		require.NoError(t, err)

		assert.Equal(t, "alice@example.com", u.Email)
		assert.False(t, u.EmailVerified)
		assert.NotEqual(t, "Str0ng!pass", u.PasswordHash)
		require.NoError(t, f.auth.VerifyPassword(u.PasswordHash, "Str0ng!pass"))

		sm := f.mailer.last(t)
		assert.Equal(t, "email_verification", sm.template)
		assert.Equal(t, []string{"alice@example.com"}, sm.to)
		assert.Contains(t, sm.data["ActionURL"], "/verify-email?token=")
	})

	t.Run("rejects weak passwords before touching the store", func(t *testing.T) {
		f := newAccountFixture(t)

		_, err := f.accounts.Signup("alice@example.com", "short")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 8 characters")

		_, err = f.users.FindByEmail("alice@example.com")
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})

	t.Run("duplicate email surfaces as such", func(t *testing.T) {
		f := newAccountFixture(t)

		_, err := f.accounts.Signup("alice@example.com", "Str0ng!pass")
		require.NoError(t, err)

		_, err = f.accounts.Signup("alice@example.com", "Str0ng!pass")
		assert.ErrorIs(t, err, user.ErrDuplicateEmail)
	})

	t.Run("mail failure fails the request but the user stands", func(t *testing.T) {
		f := newAccountFixture(t)
		f.mailer.fail = true

		_, err := f.accounts.Signup("alice@example.com", "Str0ng!pass")
		require.Error(t, err)

		u, err := f.users.FindByEmail("alice@example.com")
		require.NoError(t, err)
		assert.False(t, u.EmailVerified)
	})
}

func TestAccountService_VerifyEmail(t *testing.T) {
	t.Run("marks the email verified exactly once", func(t *testing.T) {
		f := newAccountFixture(t)

		u, err := f.accounts.Signup("alice@example.com", "Str0ng!pass")
		require.NoError(t, err)

		tok := tokenFromMail(t, f.mailer.last(t))

		require.NoError(t, f.accounts.VerifyEmail(tok))

		verified, err := f.users.FindByID(u.ID)
		require.NoError(t, err)
		assert.True(t, verified.EmailVerified)
		require.NotNil(t, verified.EmailVerifiedAt)

		err = f.accounts.VerifyEmail(tok)
		assert.ErrorIs(t, err, token.ErrTokenInvalid)
	})

	t.Run("unknown token is rejected", func(t *testing.T) {
		f := newAccountFixture(t)

		err := f.accounts.VerifyEmail("no-such-token")
		assert.ErrorIs(t, err, token.ErrTokenNotFound)
	})
}

func TestAccountService_ResendVerification(t *testing.T) {
	f := newAccountFixture(t)

	u, err := f.accounts.Signup("alice@example.com", "Str0ng!pass")
	require.NoError(t, err)

	require.NoError(t, f.accounts.ResendVerification(u))
	assert.Equal(t, 2, f.mailer.count())

	require.NoError(t, f.accounts.VerifyEmail(tokenFromMail(t, f.mailer.last(t))))

	verified, err := f.users.FindByID(u.ID)
	require.NoError(t, err)

	err = f.accounts.ResendVerification(verified)
	assert.ErrorIs(t, err, ErrEmailAlreadyVerified)
}

func TestAccountService_RequestPasswordReset(t *testing.T) {
	t.Run("unknown email succeeds without sending", func(t *testing.T) {
		f := newAccountFixture(t)

		require.NoError(t, f.accounts.RequestPasswordReset("ghost@example.com"))
		assert.Equal(t, 0, f.mailer.count())
	})

	t.Run("known email gets a reset mail", func(t *testing.T) {
		f := newAccountFixture(t)

		_, err := f.accounts.Signup("alice@example.com", "Str0ng!pass")
		require.NoError(t, err)

		require.NoError(t, f.accounts.RequestPasswordReset("alice@example.com"))

		sm := f.mailer.last(t)
		assert.Equal(t, "password_reset", sm.template)
		assert.Contains(t, sm.data["ActionURL"], "/reset-password?token=")
	})
}

func TestAccountService_ResetPassword(t *testing.T) {
	f := newAccountFixture(t)

	u, err := f.accounts.Signup("alice@example.com", "Str0ng!pass")
	require.NoError(t, err)

	// An outstanding session that must not survive the reset.
	refreshData, err := f.ledger.Issue(u.ID, false, "")
	require.NoError(t, err)

	require.NoError(t, f.accounts.RequestPasswordReset("alice@example.com"))
	tok := tokenFromMail(t, f.mailer.last(t))

	require.NoError(t, f.accounts.ResetPassword(tok, "N3w!password"))

	updated, err := f.users.FindByID(u.ID)
	require.NoError(t, err)
	require.NoError(t, f.auth.VerifyPassword(updated.PasswordHash, "N3w!password"))
	assert.True(t, updated.EmailVerified)

	_, err = f.ledger.Validate(refreshData.Token)
	assert.ErrorIs(t, err, refreshtoken.ErrRefreshTokenInvalid)

	err = f.accounts.ResetPassword(tok, "An0ther!pass")
	assert.ErrorIs(t, err, token.ErrTokenInvalid)
}

func TestAccountService_ChangePassword(t *testing.T) {
	f := newAccountFixture(t)

	u, err := f.accounts.Signup("alice@example.com", "Str0ng!pass")
	require.NoError(t, err)

	t.Run("wrong current password", func(t *testing.T) {
		err := f.accounts.ChangePassword(u, "wrong", "N3w!password")
		assert.ErrorIs(t, err, ErrCurrentPasswordIncorrect)
	})

	t.Run("unchanged password", func(t *testing.T) {
		err := f.accounts.ChangePassword(u, "Str0ng!pass", "Str0ng!pass")
		assert.ErrorIs(t, err, ErrPasswordUnchanged)
	})

	t.Run("success invalidates outstanding sessions", func(t *testing.T) {
		refreshData, err := f.ledger.Issue(u.ID, false, "")
		require.NoError(t, err)

		require.NoError(t, f.accounts.ChangePassword(u, "Str0ng!pass", "N3w!password"))

		updated, err := f.users.FindByID(u.ID)
		require.NoError(t, err)
		require.NoError(t, f.auth.VerifyPassword(updated.PasswordHash, "N3w!password"))

		_, err = f.ledger.Validate(refreshData.Token)
		assert.ErrorIs(t, err, refreshtoken.ErrRefreshTokenInvalid)
	})
}

func TestAccountService_UpdateProfile(t *testing.T) {
	f := newAccountFixture(t)

	u, err := f.accounts.Signup("alice@example.com", "Str0ng!pass")
	require.NoError(t, err)
	other, err := f.accounts.Signup("bob@example.com", "Str0ng!pass")
	require.NoError(t, err)

	t.Run("username and email update", func(t *testing.T) {
		require.NoError(t, f.accounts.UpdateProfile(u, "alice", "Alice@Example.com"))

		updated, err := f.users.FindByID(u.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", updated.Username)
		assert.Equal(t, "alice@example.com", updated.Email)
	})

	t.Run("own email is not a conflict", func(t *testing.T) {
		require.NoError(t, f.accounts.UpdateProfile(u, "", "alice@example.com"))
	})

	t.Run("someone else's email is", func(t *testing.T) {
		err := f.accounts.UpdateProfile(u, "", other.Email)
		assert.ErrorIs(t, err, user.ErrDuplicateEmail)
	})
}
