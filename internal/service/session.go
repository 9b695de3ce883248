package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/go-tenant-auth/internal/models"
	"github.com/pribylovaa/go-tenant-auth/internal/pkg/log"
	"github.com/pribylovaa/go-tenant-auth/internal/pkg/redact"
	"github.com/pribylovaa/go-tenant-auth/internal/storage"
	"github.com/pribylovaa/go-tenant-auth/internal/tokens"
)

// LoginResult — результат входа: владелец, access-токен и login-сессия.
type LoginResult struct {
	Owner   *models.Owner
	Access  *tokens.Issued
	Session *tokens.Issued
}

// Login проверяет e-mail и пароль и выпускает access-токен и login-сессию.
// Любая ошибка учётных данных сводится к ErrInvalidCredentials.
// Неподтверждённым владельцам вход разрешён, access-токен несёт verified=false.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "service.session.Login"

	lg := log.From(ctx)

	norm, err := validateEmail(email)
	if err != nil || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	owner, err := s.storage.OwnerByEmail(ctx, norm)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("login_failed",
				slog.String("email", redact.Email(norm)),
				slog.String("reason", "unknown_email"),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(owner.PasswordHash, password) {
		lg.Info("login_failed",
			slog.String("owner_id", owner.ID.String()),
			slog.String("reason", "wrong_password"),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	access, err := s.tokens.IssueFor(ctx, owner, models.TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	session, err := s.tokens.IssueFor(ctx, owner, models.TokenLoginSession)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("owner_logged_in",
		slog.String("owner_id", owner.ID.String()),
	)

	return &LoginResult{Owner: owner, Access: access, Session: session}, nil
}

// ResumeSession выпускает новый access-токен по действующей login-сессии.
// Прежний access-токен владельца уходит в чёрный список.
func (s *Service) ResumeSession(ctx context.Context, sessionToken string) (*tokens.Issued, error) {
	const op = "service.session.ResumeSession"

	claims, err := s.tokens.Validate(ctx, sessionToken, models.TokenLoginSession)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	owner, err := s.ownerByID(ctx, claims.Owner())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	access, err := s.tokens.IssueFor(ctx, owner, models.TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return access, nil
}

// Logout отзывает предъявленный access-токен и очищает login-сессию.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	const op = "service.session.Logout"

	ctx, claims, err := s.authenticate(ctx, accessToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.tokens.RevokeAccessToken(ctx, accessToken, claims)

	// Владелец мог быть удалён между выпуском токена и выходом.
	if err := s.tokens.RevokeAllForOwner(ctx, claims.Owner(), models.TokenLoginSession); err != nil &&
		!errors.Is(err, tokens.ErrInvalidOwner) {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("owner_logged_out")

	return nil
}

// Authenticate проверяет access-токен и возвращает его claims.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*tokens.Claims, error) {
	const op = "service.session.Authenticate"

	claims, err := s.tokens.Validate(ctx, accessToken, models.TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return claims, nil
}

// authenticate — Authenticate, дополнительно привязывающий owner_id к логгеру контекста.
func (s *Service) authenticate(ctx context.Context, accessToken string) (context.Context, *tokens.Claims, error) {
	claims, err := s.Authenticate(ctx, accessToken)
	if err != nil {
		return ctx, nil, err
	}

	return log.With(ctx, slog.String("owner_id", claims.Owner().String())), claims, nil
}
