package tokens

import (
	"errors"

	"github.com/pribylovaa/go-tenant-auth/internal/config"
)

var (
	// ErrInvalidToken — подпись, издатель, аудитория, тип или запись не сходятся;
	// сюда же относится повторное использование одноразового токена.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired — срок действия истёк.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenBlacklisted — access-токен отозван до естественного истечения.
	ErrTokenBlacklisted = errors.New("token blacklisted")
	// ErrMissingToken — токен не предъявлен.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidOwner — владелец отсутствует или не годится для токена этого вида.
	ErrInvalidOwner = errors.New("invalid token owner")
	// ErrUnknownKind — вид токена не поддерживается.
	ErrUnknownKind = errors.New("unknown token kind")
	// ErrTokenCollision — не удалось сохранить токен с уникальным id.
	ErrTokenCollision = errors.New("token collision")
	// ErrConfiguration — не задан ключ, издатель или аудитория семейства.
	ErrConfiguration = config.ErrConfiguration
)

// Reason сводит ошибку валидации к метке для метрик и логов.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingToken):
		return "missing"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenBlacklisted):
		return "blacklisted"
	case errors.Is(err, ErrInvalidToken):
		return "invalid"
	default:
		return "error"
	}
}
