package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-tenant-auth/internal/config"
	"github.com/pribylovaa/go-tenant-auth/internal/dispatch"
	"github.com/pribylovaa/go-tenant-auth/internal/http/apierrors"
	"github.com/pribylovaa/go-tenant-auth/internal/metrics"
	"github.com/pribylovaa/go-tenant-auth/internal/models"
	"github.com/pribylovaa/go-tenant-auth/internal/registry"
	"github.com/pribylovaa/go-tenant-auth/internal/service"
	"github.com/pribylovaa/go-tenant-auth/internal/storage/memory"
	"github.com/pribylovaa/go-tenant-auth/internal/tokens"
)

const password = "Abcdef1!"

// stubMailer запоминает id из последних писем.
type stubMailer struct {
	mu           sync.Mutex
	verification string
	reset        string
	err          error
}

func (m *stubMailer) SendVerification(_ context.Context, _ models.TokenKind, msg dispatch.VerificationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.verification = msg.VerificationID
	return nil
}

func (m *stubMailer) SendPasswordReset(_ context.Context, msg dispatch.ResetMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reset = msg.Token
	return nil
}

func (m *stubMailer) lastVerification() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verification
}

func (m *stubMailer) lastReset() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset
}

func (m *stubMailer) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func newTestRouter(t *testing.T) (http.Handler, *stubMailer) {
	t.Helper()

	fc := func(secret string, ttl time.Duration) config.FamilyConfig {
		return config.FamilyConfig{Secret: secret, Issuer: "tenant-auth", Audience: []string{"web"}, TTL: ttl}
	}
	st := memory.New()
	engine, err := tokens.New(st, registry.New(30*time.Minute), config.TokensConfig{
		Access:       fc("a", 15*time.Minute),
		Verification: fc("v", time.Hour),
		Reset:        fc("r", 30*time.Minute),
		Session:      fc("s", 24*time.Hour),
	})
	require.NoError(t, err)

	mailer := &stubMailer{}
	svc, err := service.New(st, engine, mailer, config.AccountConfig{
		FrontendBaseURL:  "http://front.test",
		BusinessTimezone: "UTC",
	})
	require.NoError(t, err)

	h := NewRouter(svc, Options{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: metrics.New(prometheus.NewRegistry()),
		Timeout: 5 * time.Second,
		Cookies: config.CookieConfig{Secure: true, SameSite: "strict"},
	})

	return h, mailer
}

type call struct {
	method  string
	path    string
	body    any
	cookies []*http.Cookie
	lang    string
}

func do(t *testing.T, h http.Handler, c call) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set("Content-Type", "application/json")
	if c.lang != "" {
		req.Header.Set("Accept-Language", c.lang)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func cookie(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) apierrors.APIError {
	t.Helper()
	var env apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env.Error
}

func register(t *testing.T, h http.Handler, email string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, call{method: http.MethodPost, path: "/auth/register", body: map[string]any{
		"kind": "user", "email": email, "password": password, "name": "Anna",
		"address": map[string]string{"country": "RU", "city": "Kazan", "line": "Baumana 1"},
	}})
}

func TestHTTP_RegisterVerifyLoginLogout(t *testing.T) {
	t.Parallel()

	h, mailer := newTestRouter(t)

	rr := register(t, h, "anna@example.com")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	link := mailer.lastVerification()
	rr = do(t, h, call{method: http.MethodPost, path: "/auth/verify-email", body: map[string]string{"token": link}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var owner map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &owner))
	require.Equal(t, true, owner["verified"])

	// Повторный переход по ссылке.
	rr = do(t, h, call{method: http.MethodPost, path: "/auth/verify-email", body: map[string]string{"token": link}})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "invalid_token", errorCode(t, rr).Code)

	rr = do(t, h, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "anna@example.com", "password": password}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	access := cookie(t, rr, "AccessToken")
	session := cookie(t, rr, "SessionToken")
	require.True(t, access.HttpOnly)
	require.True(t, access.Secure)
	require.Equal(t, http.SameSiteStrictMode, access.SameSite)
	require.True(t, session.HttpOnly)

	rr = do(t, h, call{method: http.MethodGet, path: "/account/me", cookies: []*http.Cookie{access}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var me struct {
		Email     string `json:"email"`
		Addresses []struct {
			City string `json:"city"`
		} `json:"addresses"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	require.Equal(t, "anna@example.com", me.Email)
	require.Len(t, me.Addresses, 1)
	require.Equal(t, "Kazan", me.Addresses[0].City)

	rr = do(t, h, call{method: http.MethodPost, path: "/auth/logout", cookies: []*http.Cookie{access}})
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Less(t, cookie(t, rr, "AccessToken").MaxAge, 0)
	require.Less(t, cookie(t, rr, "SessionToken").MaxAge, 0)

	// Смена e-mail после выхода отклоняется.
	rr = do(t, h, call{method: http.MethodPost, path: "/account/email", cookies: []*http.Cookie{access}, lang: "ru",
		body: map[string]string{"current_password": password, "new_email": "new@example.com"}})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	apiErr := errorCode(t, rr)
	require.Equal(t, "token_revoked", apiErr.Code)
	require.Equal(t, "Токен отозван.", apiErr.Message)

	rr = do(t, h, call{method: http.MethodPost, path: "/auth/refresh", cookies: []*http.Cookie{session}})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHTTP_RefreshSession(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, register(t, h, "s@example.com").Code)

	rr := do(t, h, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "s@example.com", "password": password}})
	require.Equal(t, http.StatusOK, rr.Code)
	first := cookie(t, rr, "AccessToken")
	session := cookie(t, rr, "SessionToken")

	rr = do(t, h, call{method: http.MethodPost, path: "/auth/refresh", cookies: []*http.Cookie{session}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	second := cookie(t, rr, "AccessToken")
	require.NotEqual(t, first.Value, second.Value)

	rr = do(t, h, call{method: http.MethodGet, path: "/account/me", cookies: []*http.Cookie{first}})
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, h, call{method: http.MethodGet, path: "/account/me", cookies: []*http.Cookie{second}})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, call{method: http.MethodPost, path: "/auth/refresh"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "missing_token", errorCode(t, rr).Code)
}

func TestHTTP_PasswordReset(t *testing.T) {
	t.Parallel()

	h, mailer := newTestRouter(t)
	require.Equal(t, http.StatusCreated, register(t, h, "r@example.com").Code)

	// Ответ одинаков для известного и неизвестного адреса.
	rr := do(t, h, call{method: http.MethodPost, path: "/auth/password/reset", body: map[string]string{"email": "ghost@example.com"}})
	require.Equal(t, http.StatusAccepted, rr.Code)
	unknown := rr.Body.String()
	require.Empty(t, mailer.lastReset())

	rr = do(t, h, call{method: http.MethodPost, path: "/auth/password/reset", body: map[string]string{"email": "r@example.com"}})
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, unknown, rr.Body.String())

	token := mailer.lastReset()
	require.NotEmpty(t, token)

	rr = do(t, h, call{method: http.MethodPost, path: "/auth/password/reset/complete",
		body: map[string]string{"token": token, "password": "Qwerty9$x", "confirm_password": "Qwerty9$y"}})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "password_mismatch", errorCode(t, rr).Code)

	rr = do(t, h, call{method: http.MethodPost, path: "/auth/password/reset/complete",
		body: map[string]string{"token": token, "password": "Qwerty9$x", "confirm_password": "Qwerty9$x"}})
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = do(t, h, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "r@example.com", "password": "Qwerty9$x"}})
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHTTP_RegisterDispatchFailure(t *testing.T) {
	t.Parallel()

	h, mailer := newTestRouter(t)
	mailer.fail(dispatch.ErrSendFailed)

	rr := register(t, h, "down@example.com")
	require.Equal(t, http.StatusBadGateway, rr.Code)
	apiErr := errorCode(t, rr)
	require.Equal(t, "dispatch_failed", apiErr.Code)
	require.NotEmpty(t, apiErr.Details["owner_id"])

	// Владелец создан: повторная регистрация конфликтует.
	mailer.fail(nil)
	rr = register(t, h, "down@example.com")
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "email_taken", errorCode(t, rr).Code)

	rr = do(t, h, call{method: http.MethodPost, path: "/auth/verification/resend", body: map[string]string{"email": "down@example.com"}})
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotEmpty(t, mailer.lastVerification())
}

func TestHTTP_BadRequests(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	rr := do(t, h, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "a@b.c", "password": "x", "extra": "1"}})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "invalid_argument", errorCode(t, rr).Code)

	rr = do(t, h, call{method: http.MethodPost, path: "/auth/register", body: map[string]any{"email": "bad", "password": password}})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "invalid_email", errorCode(t, rr).Code)

	rr = do(t, h, call{method: http.MethodGet, path: "/account/me"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "missing_token", errorCode(t, rr).Code)

	rr = do(t, h, call{method: http.MethodPost, path: "/auth/login", lang: "ru",
		body: map[string]string{"email": "nobody@example.com", "password": password}})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "Неверный адрес электронной почты или пароль.", errorCode(t, rr).Message)
}

func TestHTTP_DeleteAccount(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, register(t, h, "del@example.com").Code)

	rr := do(t, h, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "del@example.com", "password": password}})
	require.Equal(t, http.StatusOK, rr.Code)
	access := cookie(t, rr, "AccessToken")

	rr = do(t, h, call{method: http.MethodDelete, path: "/account", cookies: []*http.Cookie{access}, body: map[string]string{"password": "Wrong1!pw"}})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "invalid_credentials", errorCode(t, rr).Code)

	rr = do(t, h, call{method: http.MethodDelete, path: "/account", cookies: []*http.Cookie{access}, body: map[string]string{"password": password}})
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "del@example.com", "password": password}})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
