// service содержит бизнес-логику учётных записей: регистрацию и
// верификацию, сброс и смену пароля, смену e-mail, вход и выход,
// удаление аккаунта. Выпуск и проверка токенов делегируются tokens.Engine,
// отправка писем — dispatch.Dispatcher.
//
// Экземпляр Service не хранит состояние запроса и безопасен для
// конкурентного использования при потокобезопасном хранилище.
package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pribylovaa/go-tenant-auth/internal/config"
	"github.com/pribylovaa/go-tenant-auth/internal/dispatch"
	"github.com/pribylovaa/go-tenant-auth/internal/storage"
	"github.com/pribylovaa/go-tenant-auth/internal/tokens"
)

var (
	// Ошибки проверки токенов транслируются как есть, чтобы транспорт
	// различал их через errors.Is.
	ErrInvalidToken     = tokens.ErrInvalidToken
	ErrTokenExpired     = tokens.ErrTokenExpired
	ErrTokenBlacklisted = tokens.ErrTokenBlacklisted
	ErrMissingToken     = tokens.ErrMissingToken

	// ErrOwnerNotFound — владелец токена или e-mail не найден (HTTP 404).
	ErrOwnerNotFound = errors.New("owner not found")

	// ErrAlreadyVerified — e-mail/аккаунт уже подтверждён (HTTP 409).
	ErrAlreadyVerified = errors.New("already verified")

	// ErrEmailTaken — e-mail уже занят другим владельцем (HTTP 409).
	ErrEmailTaken = errors.New("email already taken")

	// ErrDispatchFailed — провайдер писем недоступен или отказал (HTTP 502).
	// Состояние, созданное до отправки, не откатывается.
	ErrDispatchFailed = errors.New("email dispatch failed")

	// ErrInvalidCredentials — неверная пара e-mail/пароль или текущий пароль (HTTP 401).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPasswordMismatch — новый пароль и подтверждение различаются (HTTP 400).
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrWeakPassword — пароль не удовлетворяет политике сложности (HTTP 400).
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой (HTTP 400).
	ErrEmptyPassword = errors.New("password is empty")

	// ErrInvalidEmail — e-mail имеет некорректный формат (HTTP 400).
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrEmailRestricted — e-mail в списке запрещённых (HTTP 400).
	ErrEmailRestricted = errors.New("email is restricted")

	// ErrNotVerified — операция требует подтверждённого e-mail (HTTP 403).
	ErrNotVerified = errors.New("email is not verified")

	// ErrInvalidInput — структурно некорректный запрос (HTTP 400).
	ErrInvalidInput = errors.New("invalid input")
)

// Service описывает бизнес-логику учётных записей.
type Service struct {
	storage    storage.Storage
	tokens     *tokens.Engine
	mailer     dispatch.Dispatcher
	cfg        config.AccountConfig
	loc        *time.Location
	restricted map[string]struct{}
	now        func() time.Time
}

// New создаёт новый экземпляр Service.
func New(st storage.Storage, engine *tokens.Engine, mailer dispatch.Dispatcher, cfg config.AccountConfig) (*Service, error) {
	const op = "service.New"

	tz := cfg.BusinessTimezone
	if tz == "" {
		tz = "UTC"
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: business timezone: %v", op, config.ErrConfiguration, err)
	}

	restricted := make(map[string]struct{}, len(cfg.RestrictedEmails))
	for _, e := range cfg.RestrictedEmails {
		restricted[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}

	return &Service{
		storage:    st,
		tokens:     engine,
		mailer:     mailer,
		cfg:        cfg,
		loc:        loc,
		restricted: restricted,
		now:        time.Now,
	}, nil
}

// displayTime форматирует момент истечения для письма в часовом поясе бизнеса.
// Сравнения сроков всегда выполняются в UTC.
func (s *Service) displayTime(t time.Time) string {
	return t.In(s.loc).Format(time.RFC3339)
}

// resetLink строит ссылку фронтенда для сброса пароля.
func (s *Service) resetLink(recordID string) string {
	return strings.TrimRight(s.cfg.FrontendBaseURL, "/") + "/reset-password?token=" + recordID
}
