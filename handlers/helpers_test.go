package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/middleware/ratelimit"
	"github.com/sme-finance/identity/server"
	"github.com/sme-finance/identity/services/auth"
	"github.com/sme-finance/identity/services/business"
	"github.com/sme-finance/identity/services/jwt"
	"github.com/sme-finance/identity/services/refreshtoken"
	"github.com/sme-finance/identity/services/session"
	"github.com/sme-finance/identity/services/token"
	"github.com/sme-finance/identity/services/user"
	"github.com/sme-finance/identity/testutils"
)

type sentMail struct {
	template string
	to       []string
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

	m.sent = append(m.sent, sentMail{template: templateName, to: to, data: data})
	return nil
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockSender) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	require.NotEmpty(t, m.sent)
	actionURL, ok := m.sent[len(m.sent)-1].data["ActionURL"].(string)
	require.True(t, ok)

	parts := strings.SplitN(actionURL, "token=", 2)
	require.Len(t, parts, 2)
	return parts[1]
}

type testEnv struct {
	srv    *server.Server
	cfg    *config.Config
	users  *user.Store
	ledger refreshtoken.LedgerService
	mailer *mockSender
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{
			Name:        "identity",
			FrontendURL: "http://localhost:3000",
		},
		Server: config.ServerConfig{Host: "localhost", Port: "0"},
		Auth: config.AuthConfig{
			MinLength:      8,
			RequireUpper:   true,
			RequireNumber:  true,
			RequireSpecial: true,
			BcryptCost:     4,
			TokenLength:    32,
			TokenExpiry:    30 * time.Minute,
		},
		JWT: config.JWTConfig{
			SecretKey:    "0123456789abcdef0123456789abcdef01234567",
			Issuer:       "identity",
			AccessExpiry: 15 * time.Minute,
		},
		RefreshToken: config.RefreshTokenConfig{
			TokenLength:    32,
			Expiry:         24 * time.Hour,
			RememberExpiry: 720 * time.Hour,
			CookieName:     "refresh_token",
			CookieSecure:   false,
			CookieSameSite: "lax",
		},
		Session: config.SessionConfig{
			InactivityTimeout: 30 * time.Minute,
		},
		RateLimit: config.RateLimitConfig{
			Enabled: false,
		},
	}

	for _, m := range mutate {
		m(cfg)
	}

	db := testutils.SetupTestDB(t, &user.User{}, &token.Token{}, &refreshtoken.RefreshToken{}, &business.Business{})

	users := user.NewStore(db, nil)
	authSvc := auth.NewService(cfg, users, nil)
	verification := &token.VerificationStore{Store: token.NewStore(db, token.PurposeEmailVerification, cfg, nil)}
	reset := &token.ResetStore{Store: token.NewStore(db, token.PurposePasswordReset, cfg, nil)}
	ledger := refreshtoken.NewService(db, cfg, nil)
	jwtSvc := jwt.NewService(cfg, nil)
	sessions := session.NewService(cfg, users, ledger, jwtSvc, nil)
	businesses := business.NewService(db, nil)
	mailer := &mockSender{}
	accounts := auth.NewAccountService(cfg, authSvc, users, verification, reset, ledger, mailer, nil)

	authHandler := NewAuthHandler(cfg, authSvc, accounts, sessions, users, businesses, jwtSvc, nil)
	businessHandler := NewBusinessHandler(businesses, nil)

	srv := server.New(cfg, nil)
	RegisterRoutes(srv, cfg, authHandler, businessHandler, jwtSvc, sessions, users, ratelimit.NewMemoryStore(), nil)

	return &testEnv{
		srv:    srv,
		cfg:    cfg,
		users:  users,
		ledger: ledger,
		mailer: mailer,
	}
}

type request struct {
	method  string
	path    string
	body    any
	token   string
	cookies []*http.Cookie
}

func (env *testEnv) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()

	var bodyReader *bytes.Reader
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(encoded)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	httpReq := httptest.NewRequest(req.method, req.path, bodyReader)
	httpReq.Header.Set("Content-Type", "application/json")
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	for _, cookie := range req.cookies {
		httpReq.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	env.srv.Echo().ServeHTTP(rec, httpReq)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func refreshCookie(t *testing.T, env *testEnv, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == env.cfg.RefreshToken.CookieName {
			return cookie
		}
	}
	t.Fatal("refresh cookie not set")
	return nil
}

// signupAndLogin walks a user through signup, verification and login
// and returns the access token plus refresh cookie.
func (env *testEnv) signupAndLogin(t *testing.T, email, password string) (string, *http.Cookie) {
	t.Helper()

	rec := env.do(t, request{method: http.MethodPost, path: "/api/auth/signup", body: map[string]string{
		"email":            email,
		"password":         password,
		"confirm_password": password,
	}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, request{method: http.MethodPost, path: "/api/auth/verify-email", body: map[string]string{
		"token": env.mailer.lastToken(t),
	}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{
		"email":    email,
		"password": password,
	}})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	accessToken, ok := body["access_token"].(string)
	require.True(t, ok)

	return accessToken, refreshCookie(t, env, rec)
}
