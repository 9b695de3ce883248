package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-tenant-auth/internal/models"
)

var (
	// ErrNotFound — запись не найдена (владелец/токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email, активный токен вида).
	ErrAlreadyExists = errors.New("already exists")
)

// OwnerStorage выполняет операции над владельцами (пользователями и компаниями).
type OwnerStorage interface {
	// SaveOwner атомарно создаёт нового владельца вместе с адресами.
	SaveOwner(ctx context.Context, owner *models.Owner, addrs ...models.Address) error
	// OwnerByID находит владельца по ID.
	OwnerByID(ctx context.Context, id uuid.UUID) (*models.Owner, error)
	// OwnerByEmail находит владельца по email (без учёта регистра).
	OwnerByEmail(ctx context.Context, email string) (*models.Owner, error)
	// UpdateOwner сохраняет email, хэш пароля и признак верификации.
	UpdateOwner(ctx context.Context, owner *models.Owner) error
	// SetLoginSession заменяет login-сессию владельца; пустой token очищает её.
	SetLoginSession(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
	// DeleteOwner удаляет владельца вместе с адресами и токенами в одной транзакции.
	DeleteOwner(ctx context.Context, id uuid.UUID) error
}

// AddressStorage выполняет операции над адресами владельцев.
type AddressStorage interface {
	// AddressesByOwner возвращает адреса владельца.
	AddressesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Address, error)
}

// TokenStorage выполняет операции над долговременными токенами.
type TokenStorage interface {
	// ReplaceToken помечает использованными все неиспользованные токены того же
	// вида у владельца и сохраняет новый — атомарно.
	// Возвращает ErrNotFound, если владельца нет.
	ReplaceToken(ctx context.Context, token *models.Token) error
	// TokenByID находит токен по ID.
	TokenByID(ctx context.Context, id uuid.UUID) (*models.Token, error)
	// ClaimToken атомарно помечает использованным токен, который в момент now
	// ещё не использован и не истёк. Иначе ErrNotFound.
	ClaimToken(ctx context.Context, id uuid.UUID, now time.Time) error
	// ConsumeToken помечает токен использованным. Повторный вызов — no-op.
	ConsumeToken(ctx context.Context, id uuid.UUID) error
	// RevokeTokens помечает использованными все неиспользованные токены вида
	// у владельца и возвращает их количество.
	RevokeTokens(ctx context.Context, ownerID uuid.UUID, kind models.TokenKind) (int64, error)
	// DeleteStaleTokens удаляет токены, истёкшие до before, и использованные,
	// созданные до before.
	DeleteStaleTokens(ctx context.Context, before time.Time) (int64, error)
}

//go:generate mockgen -destination=../mocks/storage.go -package=mocks github.com/pribylovaa/go-tenant-auth/internal/storage Storage

// Storage задаёт контракт работы с хранилищем.
type Storage interface {
	OwnerStorage
	AddressStorage
	TokenStorage
	Close()
}
