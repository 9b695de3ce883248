package middleware

import (
	"context"
	"net/http"
	"strings"
)

type accessTokenKey struct{}

// CookieAuth извлекает "сырой" access-токен из cookie name и кладёт его в контекст.
// Проверку токена выполняет сервис: отсутствие токена здесь не ошибка.
func CookieAuth(name string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(name); err == nil {
				if token := strings.TrimSpace(c.Value); token != "" {
					r = r.WithContext(context.WithValue(r.Context(), accessTokenKey{}, token))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccessTokenFrom возвращает access-токен, извлечённый CookieAuth.
func AccessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}
