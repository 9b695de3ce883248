package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/go-tenant-auth/internal/dispatch"
	"github.com/pribylovaa/go-tenant-auth/internal/models"
	"github.com/pribylovaa/go-tenant-auth/internal/pkg/log"
	"github.com/pribylovaa/go-tenant-auth/internal/pkg/redact"
	"github.com/pribylovaa/go-tenant-auth/internal/storage"
)

// RequestPasswordReset отправляет письмо со ссылкой сброса пароля.
//
// Вызывающему всегда возвращается успех: по ответу нельзя узнать,
// зарегистрирован ли e-mail и ушло ли письмо. Ошибкой завершаются только
// некорректный формат адреса и сбой хранилища.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "service.reset.RequestPasswordReset"

	lg := log.From(ctx)

	norm, err := validateEmail(email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	owner, err := s.storage.OwnerByEmail(ctx, norm)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("password_reset_unknown_email",
				slog.String("email", redact.Email(norm)),
			)
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	issued, err := s.tokens.IssueFor(ctx, owner, models.TokenResetPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := dispatch.ResetMessage{
		Token:       issued.ID.String(),
		Email:       owner.Email,
		RedirectURL: s.resetLink(issued.ID.String()),
		ExpiresAt:   s.displayTime(issued.ExpiresAt),
	}

	if err := s.mailer.SendPasswordReset(ctx, msg); err != nil {
		lg.Warn("password_reset_dispatch_failed",
			slog.String("op", op),
			slog.String("owner_id", owner.ID.String()),
			slog.String("err", err.Error()),
		)
		return nil
	}

	lg.Info("password_reset_requested",
		slog.String("owner_id", owner.ID.String()),
	)

	return nil
}

// CompletePasswordReset устанавливает новый пароль по токену сброса.
// Токен гасится, access-токен и login-сессия владельца отзываются.
func (s *Service) CompletePasswordReset(ctx context.Context, token, password, confirm string) error {
	const op = "service.reset.CompletePasswordReset"

	claims, err := s.tokens.Validate(ctx, token, models.TokenResetPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := newPassword(password, confirm)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	owner, err := s.ownerByID(ctx, claims.Owner())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.tokens.Claim(ctx, claims.JTI()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	owner.PasswordHash = hash
	owner.UpdatedAt = s.now().UTC()
	if err := s.storage.UpdateOwner(ctx, owner); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrOwnerNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.tokens.RevokeAllForOwner(ctx, owner.ID, models.TokenAccess); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.tokens.RevokeAllForOwner(ctx, owner.ID, models.TokenLoginSession); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("password_reset_completed",
		slog.String("owner_id", owner.ID.String()),
	)

	return nil
}
