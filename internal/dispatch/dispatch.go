// Package dispatch передаёт письма внешнему провайдеру.
//
// Контракт с провайдером: POST JSON на эндпоинт семейства, любой 2xx —
// успех, всё остальное и таймаут — ErrSendFailed. Повторов нет.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/go-tenant-auth/internal/config"
	"github.com/pribylovaa/go-tenant-auth/internal/metrics"
	"github.com/pribylovaa/go-tenant-auth/internal/models"
	"github.com/pribylovaa/go-tenant-auth/internal/pkg/log"
	"github.com/pribylovaa/go-tenant-auth/internal/pkg/redact"
)

// ErrSendFailed — провайдер недоступен, ответил не 2xx или не уложился в таймаут.
var ErrSendFailed = errors.New("email dispatch failed")

// VerificationMessage — письмо со ссылкой подтверждения e-mail или аккаунта.
type VerificationMessage struct {
	VerificationID string `json:"verificationId"`
	Email          string `json:"email"`
	ExpiresAt      string `json:"expiresAt"`
}

// ResetMessage — письмо со ссылкой сброса пароля.
type ResetMessage struct {
	Token       string `json:"token"`
	Email       string `json:"email"`
	RedirectURL string `json:"redirectUrl"`
	ExpiresAt   string `json:"expiresAt"`
}

//go:generate mockgen -destination=../mocks/dispatcher.go -package=mocks github.com/pribylovaa/go-tenant-auth/internal/dispatch Dispatcher

// Dispatcher отправляет письма.
type Dispatcher interface {
	// SendVerification отправляет письмо верификации вида kind
	// (email_verification или account_verification).
	SendVerification(ctx context.Context, kind models.TokenKind, msg VerificationMessage) error
	// SendPasswordReset отправляет письмо сброса пароля.
	SendPasswordReset(ctx context.Context, msg ResetMessage) error
}

// HTTPDispatcher — клиент провайдера писем поверх net/http.
type HTTPDispatcher struct {
	client    *http.Client
	endpoints map[models.TokenKind]string
	metrics   *metrics.Metrics
}

// NewHTTP создаёт клиента с таймаутом cfg.Timeout на каждый запрос.
func NewHTTP(cfg config.MailConfig, m *metrics.Metrics) *HTTPDispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPDispatcher{
		client: &http.Client{Timeout: timeout},
		endpoints: map[models.TokenKind]string{
			models.TokenEmailVerification:   cfg.EmailVerificationURL,
			models.TokenAccountVerification: cfg.AccountVerificationURL,
			models.TokenResetPassword:       cfg.ResetPasswordURL,
		},
		metrics: m,
	}
}

func (d *HTTPDispatcher) SendVerification(ctx context.Context, kind models.TokenKind, msg VerificationMessage) error {
	if kind != models.TokenEmailVerification && kind != models.TokenAccountVerification {
		return fmt.Errorf("dispatch.SendVerification: %w: unexpected kind %q", ErrSendFailed, kind)
	}

	return d.post(ctx, kind, msg.Email, msg)
}

func (d *HTTPDispatcher) SendPasswordReset(ctx context.Context, msg ResetMessage) error {
	return d.post(ctx, models.TokenResetPassword, msg.Email, msg)
}

func (d *HTTPDispatcher) post(ctx context.Context, kind models.TokenKind, email string, payload any) (err error) {
	const op = "dispatch.post"

	lg := log.From(ctx)

	defer func() { d.metrics.Dispatch(string(kind), err == nil) }()

	endpoint := d.endpoints[kind]
	if endpoint == "" {
		return fmt.Errorf("%s: %w: no endpoint for %s", op, ErrSendFailed, kind)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		lg.Warn("mail_dispatch_unreachable",
			slog.String("op", op),
			slog.String("kind", string(kind)),
			slog.String("email", redact.Email(email)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w: %v", op, ErrSendFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		lg.Warn("mail_dispatch_rejected",
			slog.String("op", op),
			slog.String("kind", string(kind)),
			slog.String("email", redact.Email(email)),
			slog.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%s: %w: status %d", op, ErrSendFailed, resp.StatusCode)
	}

	lg.Info("mail_dispatched",
		slog.String("kind", string(kind)),
		slog.String("email", redact.Email(email)),
	)

	return nil
}

// LogDispatcher пишет письма в лог вместо отправки. Для локального запуска
// без провайдера. Без reveal id записей и ссылки маскируются.
type LogDispatcher struct {
	logger *slog.Logger
	reveal bool
}

func NewLog(logger *slog.Logger, reveal bool) *LogDispatcher {
	return &LogDispatcher{logger: logger, reveal: reveal}
}

func (d *LogDispatcher) secret(s string) string {
	if d.reveal {
		return s
	}

	return redact.Token()
}

func (d *LogDispatcher) SendVerification(ctx context.Context, kind models.TokenKind, msg VerificationMessage) error {
	d.logger.InfoContext(ctx, "mail_verification_stub",
		slog.String("kind", string(kind)),
		slog.String("email", redact.Email(msg.Email)),
		slog.String("verification_id", d.secret(msg.VerificationID)),
		slog.String("expires_at", msg.ExpiresAt),
	)
	return nil
}

func (d *LogDispatcher) SendPasswordReset(ctx context.Context, msg ResetMessage) error {
	d.logger.InfoContext(ctx, "mail_reset_stub",
		slog.String("email", redact.Email(msg.Email)),
		slog.String("redirect_url", d.secret(msg.RedirectURL)),
		slog.String("expires_at", msg.ExpiresAt),
	)
	return nil
}
