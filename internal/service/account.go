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

// Profile — владелец и его адреса.
type Profile struct {
	Owner     *models.Owner
	Addresses []models.Address
}

// Profile возвращает данные владельца предъявленного access-токена.
func (s *Service) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	const op = "service.account.Profile"

	ctx, claims, err := s.authenticate(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	owner, err := s.ownerByID(ctx, claims.Owner())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	addrs, err := s.storage.AddressesByOwner(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Profile{Owner: owner, Addresses: addrs}, nil
}

// ChangeEmail меняет e-mail владельца: аккаунт снова становится
// неподтверждённым, на новый адрес уходит письмо верификации, а вместо
// предъявленного access-токена выпускается новый (verified=false).
//
// При сбое отправки письма новый access-токен всё равно возвращается
// вместе с ErrDispatchFailed: прежний к этому моменту уже отозван.
func (s *Service) ChangeEmail(ctx context.Context, accessToken, password, newEmail string) (*tokens.Issued, error) {
	const op = "service.account.ChangeEmail"

	ctx, claims, err := s.authenticate(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	owner, err := s.ownerByID(ctx, claims.Owner())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !owner.Verified {
		return nil, fmt.Errorf("%s: %w", op, ErrNotVerified)
	}

	if !checkPassword(owner.PasswordHash, password) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	email, err := s.checkEmail(newEmail)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if email == owner.Email {
		return nil, fmt.Errorf("%s: %w: email is unchanged", op, ErrInvalidInput)
	}

	_, err = s.storage.OwnerByEmail(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	prev := owner.Email
	owner.Email = email
	owner.Verified = false
	owner.UpdatedAt = s.now().UTC()

	if err := s.storage.UpdateOwner(ctx, owner); err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrOwnerNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("owner_email_changed",
		slog.String("from", redact.Email(prev)),
		slog.String("to", redact.Email(email)),
	)

	access, err := s.tokens.IssueFor(ctx, owner, models.TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.sendVerification(ctx, owner); err != nil {
		return access, fmt.Errorf("%s: %w", op, err)
	}

	return access, nil
}

// ChangePassword меняет пароль подтверждённого владельца и гасит его
// действующие токены сброса пароля.
func (s *Service) ChangePassword(ctx context.Context, accessToken, current, password, confirm string) error {
	const op = "service.account.ChangePassword"

	ctx, claims, err := s.authenticate(ctx, accessToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	owner, err := s.ownerByID(ctx, claims.Owner())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !owner.Verified {
		return fmt.Errorf("%s: %w", op, ErrNotVerified)
	}

	if !checkPassword(owner.PasswordHash, current) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	hash, err := newPassword(password, confirm)
	if err != nil {
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

	if err := s.tokens.RevokeAllForOwner(ctx, owner.ID, models.TokenResetPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("owner_password_changed")

	return nil
}

// DeleteAccount удаляет владельца вместе с адресами и токенами
// и отзывает предъявленный access-токен.
func (s *Service) DeleteAccount(ctx context.Context, accessToken, password string) error {
	const op = "service.account.DeleteAccount"

	ctx, claims, err := s.authenticate(ctx, accessToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	owner, err := s.ownerByID(ctx, claims.Owner())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(owner.PasswordHash, password) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if err := s.storage.DeleteOwner(ctx, owner.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrOwnerNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	s.tokens.RevokeAccessToken(ctx, accessToken, claims)

	log.From(ctx).Info("owner_deleted")

	return nil
}
