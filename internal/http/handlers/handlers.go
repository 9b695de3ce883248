package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pribylovaa/go-tenant-auth/internal/config"
	"github.com/pribylovaa/go-tenant-auth/internal/http/middleware"
	"github.com/pribylovaa/go-tenant-auth/internal/service"
	"github.com/pribylovaa/go-tenant-auth/internal/tokens"
)

// Имена cookie с токенами.
const (
	CookieAccess  = "AccessToken"
	CookieSession = "SessionToken"
)

// Handlers агрегирует зависимости HTTP-обработчиков.
type Handlers struct {
	svc     *service.Service
	cookies config.CookieConfig
}

func New(svc *service.Service, cookies config.CookieConfig) *Handlers {
	return &Handlers{svc: svc, cookies: cookies}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

const maxBody = 1 << 20

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// accessToken — токен из cookie, извлечённый middleware.CookieAuth.
func accessToken(r *http.Request) string {
	return middleware.AccessTokenFrom(r.Context())
}

func (h *Handlers) sameSite() http.SameSite {
	switch strings.ToLower(h.cookies.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (h *Handlers) setTokenCookie(w http.ResponseWriter, name string, issued *tokens.Issued) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    issued.Token,
		Path:     "/",
		Domain:   h.cookies.Domain,
		Expires:  issued.ExpiresAt,
		MaxAge:   int(time.Until(issued.ExpiresAt).Seconds()),
		Secure:   h.cookies.Secure,
		HttpOnly: true,
		SameSite: h.sameSite(),
	})
}

func (h *Handlers) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   -1,
		Secure:   h.cookies.Secure,
		HttpOnly: true,
		SameSite: h.sameSite(),
	})
}
