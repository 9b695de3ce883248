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

const ownerColumns = `
	id, kind, email, password_hash, verified, name, business_type, region,
	login_session, login_session_expires_at, created_at, updated_at
`

// SaveOwner создает нового владельца в БД вместе с его адресами.
// Владелец и адреса пишутся в одной транзакции: либо всё, либо ничего.
func (s *Storage) SaveOwner(ctx context.Context, owner *models.Owner, addrs ...models.Address) (err error) {
	const op = "storage.postgres.SaveOwner"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	query := `
		INSERT INTO owners(id, kind, email, password_hash, verified, name,
			business_type, region, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = tx.Exec(ctx, query,
		owner.ID,
		string(owner.Kind),
		owner.Email,
		owner.PasswordHash,
		owner.Verified,
		owner.Name,
		string(owner.BusinessType),
		string(owner.Region),
		owner.CreatedAt,
		owner.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = storage.ErrAlreadyExists
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	insertAddr := `
		INSERT INTO addresses(id, owner_id, country, city, line, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, addr := range addrs {
		_, err = tx.Exec(ctx, insertAddr,
			addr.ID,
			owner.ID,
			addr.Country,
			addr.City,
			addr.Line,
			addr.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				err = storage.ErrAlreadyExists
			}

			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// OwnerByID находит владельца по ID.
func (s *Storage) OwnerByID(ctx context.Context, id uuid.UUID) (*models.Owner, error) {
	const op = "storage.postgres.OwnerByID"

	query := `SELECT ` + ownerColumns + ` FROM owners WHERE id = $1`

	owner, err := scanOwner(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return owner, nil
}

// OwnerByEmail находит владельца по email. Колонка CITEXT — сравнение без учёта регистра.
func (s *Storage) OwnerByEmail(ctx context.Context, email string) (*models.Owner, error) {
	const op = "storage.postgres.OwnerByEmail"

	query := `SELECT ` + ownerColumns + ` FROM owners WHERE email = $1`

	owner, err := scanOwner(s.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return owner, nil
}

// UpdateOwner обновляет email, хэш пароля и признак верификации.
func (s *Storage) UpdateOwner(ctx context.Context, owner *models.Owner) error {
	const op = "storage.postgres.UpdateOwner"

	query := `
		UPDATE owners
		SET email = $2, password_hash = $3, verified = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := s.db.Exec(ctx, query,
		owner.ID,
		owner.Email,
		owner.PasswordHash,
		owner.Verified,
		owner.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// SetLoginSession заменяет login-сессию владельца; пустой token очищает её.
func (s *Storage) SetLoginSession(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	const op = "storage.postgres.SetLoginSession"

	var (
		tokenArg *string
		expArg   *time.Time
	)
	if token != "" {
		tokenArg = &token
		expArg = &expiresAt
	}

	query := `
		UPDATE owners
		SET login_session = $2, login_session_expires_at = $3
		WHERE id = $1
	`

	tag, err := s.db.Exec(ctx, query, id, tokenArg, expArg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteOwner удаляет владельца вместе с токенами и адресами в одной транзакции.
// Порядок удаления задан явно: дочерние записи, затем владелец.
func (s *Storage) DeleteOwner(ctx context.Context, id uuid.UUID) (err error) {
	const op = "storage.postgres.DeleteOwner"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM tokens WHERE owner_id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM addresses WHERE owner_id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM owners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		err = storage.ErrNotFound
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AddressesByOwner возвращает адреса владельца в порядке создания.
func (s *Storage) AddressesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Address, error) {
	const op = "storage.postgres.AddressesByOwner"

	query := `
		SELECT id, owner_id, country, city, line, created_at
		FROM addresses
		WHERE owner_id = $1
		ORDER BY created_at, id
	`

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.Address
	for rows.Next() {
		var a models.Address
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Country, &a.City, &a.Line, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// scanOwner читает строку владельца; NULL-колонки login-сессии становятся нулевыми значениями.
func scanOwner(row pgx.Row) (*models.Owner, error) {
	var (
		owner        models.Owner
		kind         string
		businessType string
		region       string
		session      *string
		sessionExp   *time.Time
	)

	err := row.Scan(
		&owner.ID,
		&kind,
		&owner.Email,
		&owner.PasswordHash,
		&owner.Verified,
		&owner.Name,
		&businessType,
		&region,
		&session,
		&sessionExp,
		&owner.CreatedAt,
		&owner.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	owner.Kind = models.OwnerKind(kind)
	owner.BusinessType = models.BusinessType(businessType)
	owner.Region = models.Region(region)

	if session != nil {
		owner.LoginSession = *session
	}

	if sessionExp != nil {
		owner.LoginSessionExpiresAt = sessionExp.UTC()
	}

	return &owner, nil
}
