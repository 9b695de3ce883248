package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-tenant-auth/internal/dispatch"
	"github.com/pribylovaa/go-tenant-auth/internal/models"
	"github.com/pribylovaa/go-tenant-auth/internal/pkg/log"
	"github.com/pribylovaa/go-tenant-auth/internal/pkg/redact"
	"github.com/pribylovaa/go-tenant-auth/internal/storage"
)

// AddressInput — необязательный адрес при регистрации.
type AddressInput struct {
	Country string
	City    string
	Line    string
}

// RegisterInput — данные регистрации пользователя или компании.
type RegisterInput struct {
	Kind     models.OwnerKind
	Email    string
	Password string
	Name     string

	// Только для компаний.
	BusinessType models.BusinessType
	Region       models.Region

	Address *AddressInput
}

// Register создаёт неподтверждённого владельца и отправляет письмо верификации:
// пользователю — подтверждение e-mail, компании — подтверждение аккаунта.
//
// Если письмо не ушло, владелец остаётся созданным и возвращается вместе
// с ErrDispatchFailed: письмо можно запросить повторно через ResendVerification.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Owner, error) {
	const op = "service.register.Register"

	lg := log.From(ctx)

	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%s: %w: unknown owner kind", op, ErrInvalidInput)
	}

	email, err := s.checkEmail(in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	name := strings.TrimSpace(in.Name)
	if in.Kind == models.OwnerCompany {
		if name == "" {
			return nil, fmt.Errorf("%s: %w: company name is required", op, ErrInvalidInput)
		}
		if !in.BusinessType.Valid() {
			return nil, fmt.Errorf("%s: %w: unknown business type", op, ErrInvalidInput)
		}
		if !in.Region.Valid() {
			return nil, fmt.Errorf("%s: %w: unknown region", op, ErrInvalidInput)
		}
	}

	_, err = s.storage.OwnerByEmail(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	owner := &models.Owner{
		ID:           uuid.New(),
		Kind:         in.Kind,
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Kind == models.OwnerCompany {
		owner.BusinessType = in.BusinessType
		owner.Region = in.Region
	}

	var addrs []models.Address
	if in.Address != nil {
		addrs = append(addrs, models.Address{
			ID:        uuid.New(),
			OwnerID:   owner.ID,
			Country:   strings.TrimSpace(in.Address.Country),
			City:      strings.TrimSpace(in.Address.City),
			Line:      strings.TrimSpace(in.Address.Line),
			CreatedAt: now,
		})
	}

	if err := s.storage.SaveOwner(ctx, owner, addrs...); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("owner_registered",
		slog.String("owner_id", owner.ID.String()),
		slog.String("kind", string(owner.Kind)),
		slog.String("email", redact.Email(owner.Email)),
	)

	if err := s.sendVerification(ctx, owner); err != nil {
		return owner, fmt.Errorf("%s: %w", op, err)
	}

	return owner, nil
}

// ResendVerification повторно отправляет письмо верификации. Все ранее
// выпущенные токены верификации владельца перестают действовать.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	const op = "service.register.ResendVerification"

	norm, err := validateEmail(email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	owner, err := s.storage.OwnerByEmail(ctx, norm)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrOwnerNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if owner.Verified {
		return fmt.Errorf("%s: %w", op, ErrAlreadyVerified)
	}

	if err := s.sendVerification(ctx, owner); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// VerifyEmail подтверждает e-mail пользователя по токену из письма.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*models.Owner, error) {
	return s.verify(ctx, token, models.TokenEmailVerification)
}

// VerifyAccount подтверждает аккаунт компании по токену из письма.
func (s *Service) VerifyAccount(ctx context.Context, token string) (*models.Owner, error) {
	return s.verify(ctx, token, models.TokenAccountVerification)
}

func (s *Service) verify(ctx context.Context, token string, kind models.TokenKind) (*models.Owner, error) {
	const op = "service.register.verify"

	claims, err := s.tokens.Validate(ctx, token, kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	owner, err := s.ownerByID(ctx, claims.Owner())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if owner.Verified {
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyVerified)
	}

	// Токен выписан на прежний адрес.
	if !strings.EqualFold(claims.Email, owner.Email) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	// Гасим токен до изменения владельца: конкурентный повтор получит ErrInvalidToken.
	if err := s.tokens.Claim(ctx, claims.JTI()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	owner.Verified = true
	owner.UpdatedAt = s.now().UTC()
	if err := s.storage.UpdateOwner(ctx, owner); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrOwnerNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("owner_verified",
		slog.String("owner_id", owner.ID.String()),
		slog.String("kind", string(kind)),
	)

	return owner, nil
}

// sendVerification выпускает токен верификации (прежние гасятся) и отправляет письмо.
// Выпущенный токен при сбое отправки не откатывается.
func (s *Service) sendVerification(ctx context.Context, owner *models.Owner) error {
	const op = "service.register.sendVerification"

	kind := models.VerificationKindFor(owner.Kind)

	issued, err := s.tokens.IssueFor(ctx, owner, kind)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := dispatch.VerificationMessage{
		VerificationID: issued.ID.String(),
		Email:          owner.Email,
		ExpiresAt:      s.displayTime(issued.ExpiresAt),
	}

	if err := s.mailer.SendVerification(ctx, kind, msg); err != nil {
		log.From(ctx).Warn("verification_dispatch_failed",
			slog.String("op", op),
			slog.String("owner_id", owner.ID.String()),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, ErrDispatchFailed)
	}

	return nil
}

// ownerByID загружает владельца, отсутствие — ErrOwnerNotFound.
func (s *Service) ownerByID(ctx context.Context, id uuid.UUID) (*models.Owner, error) {
	owner, err := s.storage.OwnerByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrOwnerNotFound
		}

		return nil, err
	}

	return owner, nil
}
