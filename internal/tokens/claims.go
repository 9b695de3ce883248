package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-tenant-auth/internal/models"
)

// Claims — полезная нагрузка токенов всех видов.
// Email не пишется в login-сессию; Verified и OwnerKind — только в access.
type Claims struct {
	OwnerID   string           `json:"uid"`
	Email     string           `json:"email,omitempty"`
	Type      models.TokenKind `json:"typ"`
	OwnerKind models.OwnerKind `json:"okd,omitempty"`
	Verified  bool             `json:"verified,omitempty"`
	jwt.RegisteredClaims

	owner uuid.UUID
	jti   uuid.UUID
}

// Owner — ID владельца, проверенный при валидации.
func (c *Claims) Owner() uuid.UUID { return c.owner }

// JTI — уникальный id токена; для долговременных видов совпадает с id записи.
func (c *Claims) JTI() uuid.UUID { return c.jti }

// Expiry — момент истечения токена.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}

	return c.ExpiresAt.Time.UTC()
}

// Issued — результат выпуска токена.
type Issued struct {
	// ID — jti; для долговременных видов — id записи, который уходит в ссылки писем.
	ID        uuid.UUID
	Kind      models.TokenKind
	Token     string
	ExpiresAt time.Time
}
