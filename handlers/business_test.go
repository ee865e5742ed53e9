package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessSetup(t *testing.T) {
	t.Run("creates the profile", func(t *testing.T) {
		env := newTestEnv(t)
		accessToken, _ := env.signupAndLogin(t, "alice@example.com", "Str0ng!pass")

		rec := env.do(t, request{method: http.MethodPost, path: "/api/business/setup", token: accessToken, body: map[string]string{
			"business_name": "Acme Ltd",
			"currency":      "NGN",
			"business_type": "retail",
		}})
		require.Equal(t, http.StatusCreated, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "Acme Ltd", body["business_name"])
		assert.Equal(t, "NGN", body["currency"])
	})

	t.Run("second setup conflicts", func(t *testing.T) {
		env := newTestEnv(t)
		accessToken, _ := env.signupAndLogin(t, "alice@example.com", "Str0ng!pass")

		rec := env.do(t, request{method: http.MethodPost, path: "/api/business/setup", token: accessToken, body: map[string]string{
			"business_name": "Acme Ltd",
			"currency":      "USD",
		}})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = env.do(t, request{method: http.MethodPost, path: "/api/business/setup", token: accessToken, body: map[string]string{
			"business_name": "Other Ltd",
			"currency":      "USD",
		}})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)
		accessToken, _ := env.signupAndLogin(t, "alice@example.com", "Str0ng!pass")

		rec := env.do(t, request{method: http.MethodPost, path: "/api/business/setup", token: accessToken, body: map[string]string{
			"business_name": "A",
			"currency":      "USD",
		}})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		details := decodeBody(t, rec)["details"].(map[string]any)
		assert.Contains(t, details, "business_name")

		rec = env.do(t, request{method: http.MethodPost, path: "/api/business/setup", token: accessToken, body: map[string]string{
			"business_name": "Acme Ltd",
			"currency":      "XXX",
		}})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		details = decodeBody(t, rec)["details"].(map[string]any)
		assert.Contains(t, details, "currency")

		rec = env.do(t, request{method: http.MethodPost, path: "/api/business/setup", token: accessToken, body: map[string]string{
			"business_name": "Acme Ltd",
			"currency":      "USD",
			"business_logo": "https://cdn.example.com/logo.gif",
		}})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		details = decodeBody(t, rec)["details"].(map[string]any)
		assert.Contains(t, details, "business_logo")
	})
}

func TestBusinessMe(t *testing.T) {
	env := newTestEnv(t)
	accessToken, _ := env.signupAndLogin(t, "alice@example.com", "Str0ng!pass")

	rec := env.do(t, request{method: http.MethodGet, path: "/api/business/me", token: accessToken})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, request{method: http.MethodPost, path: "/api/business/setup", token: accessToken, body: map[string]string{
		"business_name": "Acme Ltd",
		"currency":      "GBP",
	}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, request{method: http.MethodGet, path: "/api/business/me", token: accessToken})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Acme Ltd", decodeBody(t, rec)["business_name"])

	// Login now includes the business.
	rec = env.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{
		"email":    "alice@example.com",
		"password": "Str0ng!pass",
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	businessBody, ok := decodeBody(t, rec)["business"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Acme Ltd", businessBody["business_name"])
}

func TestBusinessUpdate(t *testing.T) {
	env := newTestEnv(t)
	accessToken, _ := env.signupAndLogin(t, "alice@example.com", "Str0ng!pass")

	t.Run("no profile yet", func(t *testing.T) {
		rec := env.do(t, request{method: http.MethodPut, path: "/api/business/update", token: accessToken, body: map[string]string{
			"business_name": "Acme Ltd",
		}})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("partial update leaves other fields alone", func(t *testing.T) {
		rec := env.do(t, request{method: http.MethodPost, path: "/api/business/setup", token: accessToken, body: map[string]string{
			"business_name": "Acme Ltd",
			"currency":      "KES",
		}})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = env.do(t, request{method: http.MethodPut, path: "/api/business/update", token: accessToken, body: map[string]string{
			"business_name": "Acme International",
		}})
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "Acme International", body["business_name"])
		assert.Equal(t, "KES", body["currency"])
	})

	t.Run("invalid currency", func(t *testing.T) {
		rec := env.do(t, request{method: http.MethodPut, path: "/api/business/update", token: accessToken, body: map[string]string{
			"currency": "BTC",
		}})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
