package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-tenant-auth/internal/models"
	"github.com/pribylovaa/go-tenant-auth/internal/storage"
)

// ReplaceToken атомарно отзывает прежние неиспользованные токены вида
// и сохраняет новый.
//
// Строка владельца блокируется (SELECT ... FOR UPDATE), поэтому конкурентные
// выпуски для одного владельца выполняются последовательно; частичный
// уникальный индекс tokens_owner_kind_unused_uidx остаётся последней линией
// защиты между экземплярами сервиса.
func (s *Storage) ReplaceToken(ctx context.Context, token *models.Token) (err error) {
	const op = "storage.postgres.ReplaceToken"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM owners WHERE id = $1 FOR UPDATE`, token.OwnerID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = storage.ErrNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	revoke := `
		UPDATE tokens
		SET used = TRUE
		WHERE owner_id = $1 AND kind = $2 AND used = FALSE
	`
	if _, err = tx.Exec(ctx, revoke, token.OwnerID, string(token.Kind)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	insert := `
		INSERT INTO tokens(id, owner_id, kind, token, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.Exec(ctx, insert,
		token.ID,
		token.OwnerID,
		string(token.Kind),
		token.Token,
		token.ExpiresAt,
		token.Used,
		token.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = storage.ErrAlreadyExists
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// TokenByID находит токен по ID.
func (s *Storage) TokenByID(ctx context.Context, id uuid.UUID) (*models.Token, error) {
	const op = "storage.postgres.TokenByID"

	query := `
		SELECT id, owner_id, kind, token, expires_at, used, created_at
		FROM tokens
		WHERE id = $1
	`

	var (
		token models.Token
		kind  string
	)
	err := s.db.QueryRow(ctx, query, id).Scan(
		&token.ID,
		&token.OwnerID,
		&kind,
		&token.Token,
		&token.ExpiresAt,
		&token.Used,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	token.Kind = models.TokenKind(kind)
	token.ExpiresAt = token.ExpiresAt.UTC()
	token.CreatedAt = token.CreatedAt.UTC()

	return &token, nil
}

// ClaimToken гасит токен одним условным UPDATE: из конкурентных запросов
// строку обновит только первый.
func (s *Storage) ClaimToken(ctx context.Context, id uuid.UUID, now time.Time) error {
	const op = "storage.postgres.ClaimToken"

	query := `
		UPDATE tokens
		SET used = TRUE
		WHERE id = $1 AND used = FALSE AND expires_at > $2
	`
	tag, err := s.db.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ConsumeToken помечает токен использованным.
// Для уже использованного токена ничего не меняет и ошибки не возвращает.
func (s *Storage) ConsumeToken(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.ConsumeToken"

	tag, err := s.db.Exec(ctx, `UPDATE tokens SET used = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// RevokeTokens помечает использованными все неиспользованные токены вида у владельца.
func (s *Storage) RevokeTokens(ctx context.Context, ownerID uuid.UUID, kind models.TokenKind) (int64, error) {
	const op = "storage.postgres.RevokeTokens"

	query := `
		UPDATE tokens
		SET used = TRUE
		WHERE owner_id = $1 AND kind = $2 AND used = FALSE
	`

	tag, err := s.db.Exec(ctx, query, ownerID, string(kind))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

// DeleteStaleTokens удаляет истёкшие до before и использованные токены, созданные до before.
func (s *Storage) DeleteStaleTokens(ctx context.Context, before time.Time) (int64, error) {
	const op = "storage.postgres.DeleteStaleTokens"

	query := `
		DELETE FROM tokens
		WHERE expires_at <= $1
		   OR (used = TRUE AND created_at <= $1)
	`

	tag, err := s.db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}
