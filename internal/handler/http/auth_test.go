package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/middleware"
)

func login(t *testing.T, env *testEnv) {
	t.Helper()
	rec, _ := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]any{"email": "ana@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestLogin_EstablishesSession(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]any{"email": "ana@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	state := decodeData[service.SessionState](t, body)
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "ana@example.com", state.User.Email)

	tokens, err := repository.NewTokenRepository(env.store).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens{Access: "access-1", Refresh: "refresh-1"}, tokens)
}

func TestAuth_RateLimited(t *testing.T) {
	env := newTestEnv(t, func(cfg *RouterConfig) {
		cfg.RateLimit = middleware.RateLimitConfig{RPS: 0.01, Burst: 2}
	})
	creds := map[string]any{"email": "ana@example.com", "password": "wrong-pass"}

	for i := 0; i < 2; i++ {
		rec, _ := env.do(t, http.MethodPost, "/api/v1/auth/login", creds)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec, body := env.do(t, http.MethodPost, "/api/v1/auth/login", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.NotNil(t, body.Error)
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)

	// Checkout has its own bucket and the cart stays reachable.
	rec, _ = env.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(t, http.MethodPost, "/api/v1/checkout", map[string]any{})
	assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]any{"email": "ana@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "No active account found with the given credentials", body.Error.Message)
	assert.False(t, env.session.IsAuthenticated())
}

func TestLogin_InvalidEmail(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]any{"email": "ana", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, body.Error)
	assert.Contains(t, body.Error.Fields, "email")
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"email":            "new@example.com",
		"password":         "longenough",
		"password_confirm": "longenough",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, decodeData[service.SessionState](t, body).IsAuthenticated)
}

func TestRegister_PasswordMismatch(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"email":            "new@example.com",
		"password":         "longenough",
		"password_confirm": "different1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, body.Error)
	assert.Contains(t, body.Error.Fields, "password_confirm")
}

func TestLogout_ClearsSession(t *testing.T) {
	env := newTestEnv(t)
	login(t, env)

	rec, body := env.do(t, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeData[service.SessionState](t, body).IsAuthenticated)

	env.api.mu.Lock()
	assert.Equal(t, []string{"refresh-1"}, env.api.loggedOut)
	env.api.mu.Unlock()

	tokens, err := repository.NewTokenRepository(env.store).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tokens.Access)
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	login(t, env)
	rec, _ = env.do(t, http.MethodPost, "/api/v1/auth/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "access-3", env.session.AccessToken(context.Background()))

	tokens, err := repository.NewTokenRepository(env.store).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", tokens.Refresh)
}

func TestSession_Anonymous(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/api/v1/auth/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeData[service.SessionState](t, body)
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
}

func TestProfile_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/api/v1/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
}

func TestProfile_SendsBearerToken(t *testing.T) {
	env := newTestEnv(t)
	login(t, env)

	rec, body := env.do(t, http.MethodGet, "/api/v1/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana", decodeData[domain.User](t, body).FirstName)

	env.api.mu.Lock()
	defer env.api.mu.Unlock()
	assert.Equal(t, "Bearer access-1", env.api.authHeader)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	login(t, env)

	rec, body := env.do(t, http.MethodPut, "/api/v1/profile", map[string]any{"first_name": "Ana María"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Ana María", decodeData[domain.User](t, body).FirstName)

	state := env.session.State()
	require.NotNil(t, state.User)
	assert.Equal(t, "Ana María", state.User.FirstName)
}
