// Package cache — зеркало отозванных access-токенов в Redis.
//
// Реестр в памяти теряет чёрный список при рестарте и не виден соседним
// инстансам; зеркало хранит jti отозванных токенов с TTL до момента, когда
// токен перестанет проходить проверку подписи сам.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationMirror — минимальный контракт зеркала отзывов.
type RevocationMirror interface {
	// Revoke помечает jti отозванным на ttl.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	// IsRevoked сообщает, отозван ли jti.
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// Close закрывает клиент Redis.
	Close() error
}

type redisMirror struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisMirror создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:bl:".
func NewRedisMirror(ctx context.Context, redisURL, prefix string) (RevocationMirror, error) {
	if prefix == "" {
		prefix = "auth:bl:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &redisMirror{rdb: rdb, prefix: prefix}, nil
}

func (m *redisMirror) key(jti string) string { return m.prefix + jti }

// Revoke сохраняет ключ с TTL. Неположительный ttl — no-op: токен уже истёк.
func (m *redisMirror) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	return m.rdb.Set(ctx, m.key(jti), "1", ttl).Err()
}

func (m *redisMirror) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := m.rdb.Get(ctx, m.key(jti)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}

func (m *redisMirror) Close() error { return m.rdb.Close() }
