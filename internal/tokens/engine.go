// Package tokens выпускает, проверяет, гасит и отзывает токены всех видов.
//
// Access-токены живут только в реестре процесса, одноразовые токены
// (верификация e-mail/аккаунта, сброс пароля) — в хранилище, login-сессия —
// в записи владельца. Подпись HS256 с отдельным ключом, издателем и
// аудиторией на каждое семейство.
package tokens

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-tenant-auth/internal/cache"
	"github.com/pribylovaa/go-tenant-auth/internal/config"
	"github.com/pribylovaa/go-tenant-auth/internal/metrics"
	"github.com/pribylovaa/go-tenant-auth/internal/models"
	"github.com/pribylovaa/go-tenant-auth/internal/pkg/log"
	"github.com/pribylovaa/go-tenant-auth/internal/registry"
	"github.com/pribylovaa/go-tenant-auth/internal/storage"
)

type family struct {
	name     string
	secret   []byte
	issuer   string
	audience []string
	ttl      time.Duration
}

// Engine — движок жизненного цикла токенов.
type Engine struct {
	storage  storage.Storage
	registry *registry.Registry
	mirror   cache.RevocationMirror
	metrics  *metrics.Metrics
	families map[models.TokenKind]family
	now      func() time.Time
}

// Option настраивает Engine.
type Option func(*Engine)

// WithMirror подключает зеркало отзывов в Redis.
func WithMirror(m cache.RevocationMirror) Option {
	return func(e *Engine) { e.mirror = m }
}

// WithMetrics подключает метрики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New создаёт движок. Отсутствие ключа, издателя, аудитории или TTL
// у любого семейства — ErrConfiguration.
func New(st storage.Storage, reg *registry.Registry, cfg config.TokensConfig, opts ...Option) (*Engine, error) {
	const op = "tokens.New"

	mk := func(name string, fc config.FamilyConfig) (family, error) {
		switch {
		case fc.Secret == "":
			return family{}, fmt.Errorf("%s: %w: %s signing key is empty", op, ErrConfiguration, name)
		case fc.Issuer == "":
			return family{}, fmt.Errorf("%s: %w: %s issuer is empty", op, ErrConfiguration, name)
		case len(fc.Audience) == 0:
			return family{}, fmt.Errorf("%s: %w: %s audience is empty", op, ErrConfiguration, name)
		case fc.TTL <= 0:
			return family{}, fmt.Errorf("%s: %w: %s ttl must be positive", op, ErrConfiguration, name)
		}

		return family{
			name:     name,
			secret:   []byte(fc.Secret),
			issuer:   fc.Issuer,
			audience: append([]string(nil), fc.Audience...),
			ttl:      fc.TTL,
		}, nil
	}

	access, err := mk("access", cfg.Access)
	if err != nil {
		return nil, err
	}
	verification, err := mk("verification", cfg.Verification)
	if err != nil {
		return nil, err
	}
	reset, err := mk("reset", cfg.Reset)
	if err != nil {
		return nil, err
	}
	session, err := mk("session", cfg.Session)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		storage:  st,
		registry: reg,
		families: map[models.TokenKind]family{
			models.TokenAccess:              access,
			models.TokenEmailVerification:   verification,
			models.TokenAccountVerification: verification,
			models.TokenResetPassword:       reset,
			models.TokenLoginSession:        session,
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Issue выпускает токен вида kind владельцу ownerID.
func (e *Engine) Issue(ctx context.Context, ownerID uuid.UUID, kind models.TokenKind) (*Issued, error) {
	const op = "tokens.Issue"

	owner, err := e.storage.OwnerByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidOwner)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return e.IssueFor(ctx, owner, kind)
}

// IssueFor выпускает токен вида kind для уже загруженного владельца.
// Предыдущий активный токен того же вида отзывается до регистрации нового.
func (e *Engine) IssueFor(ctx context.Context, owner *models.Owner, kind models.TokenKind) (*Issued, error) {
	const (
		op          = "tokens.IssueFor"
		maxAttempts = 5
	)

	lg := log.From(ctx)

	if !kind.Valid() {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownKind, kind)
	}
	f := e.families[kind]

	if owner == nil || owner.ID == uuid.Nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidOwner)
	}

	if kind.Durable() && strings.TrimSpace(owner.Email) == "" {
		return nil, fmt.Errorf("%s: %w: empty email", op, ErrInvalidOwner)
	}

	now := e.now().UTC()
	exp := expiry(now, f.ttl)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		jti := uuid.New()

		signed, err := e.sign(f, e.claimsFor(owner, kind, jti, now, exp, f))
		if err != nil {
			lg.Error("token_sign_failed",
				slog.String("op", op),
				slog.String("kind", string(kind)),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		issued := &Issued{ID: jti, Kind: kind, Token: signed, ExpiresAt: exp}

		switch kind {
		case models.TokenAccess:
			prev, replaced := e.registry.Replace(owner.ID, registry.Entry{Token: signed, JTI: jti.String(), ExpiresAt: exp}, now)
			if replaced {
				e.mirrorRevoke(ctx, prev, now)
				e.metrics.TokensRevoked(string(kind), 1)
			}

		case models.TokenLoginSession:
			if err := e.storage.SetLoginSession(ctx, owner.ID, signed, exp); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return nil, fmt.Errorf("%s: %w", op, ErrInvalidOwner)
				}

				lg.Error("login_session_save_failed",
					slog.String("op", op),
					slog.String("owner_id", owner.ID.String()),
					slog.String("err", err.Error()),
				)
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			owner.LoginSession = signed
			owner.LoginSessionExpiresAt = exp

		default:
			rec := &models.Token{
				ID:        jti,
				OwnerID:   owner.ID,
				Kind:      kind,
				Token:     signed,
				ExpiresAt: exp,
				CreatedAt: now,
			}

			if err := e.storage.ReplaceToken(ctx, rec); err != nil {
				switch {
				case errors.Is(err, storage.ErrAlreadyExists):
					// Редкая коллизия — пробуем сгенерировать заново.
					continue
				case errors.Is(err, storage.ErrNotFound):
					return nil, fmt.Errorf("%s: %w", op, ErrInvalidOwner)
				}

				lg.Error("token_save_failed",
					slog.String("op", op),
					slog.String("kind", string(kind)),
					slog.String("owner_id", owner.ID.String()),
					slog.String("err", err.Error()),
				)
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}

		e.metrics.TokenIssued(string(kind))
		lg.Debug("token_issued",
			slog.String("kind", string(kind)),
			slog.String("owner_id", owner.ID.String()),
			slog.String("jti", jti.String()),
		)

		return issued, nil
	}

	lg.Error("token_collision_exceeded",
		slog.String("op", op),
		slog.String("kind", string(kind)),
	)

	return nil, fmt.Errorf("%s: %w", op, ErrTokenCollision)
}

// expiry округляет now+ttl вверх до секунды: NumericDate хранит секунды,
// exp в JWT и в записи совпадает, а токен живёт не меньше ttl.
func expiry(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if t := exp.Truncate(time.Second); !t.Equal(exp) {
		return t.Add(time.Second)
	}

	return exp
}

func (e *Engine) claimsFor(owner *models.Owner, kind models.TokenKind, jti uuid.UUID, now, exp time.Time, f family) *Claims {
	c := &Claims{
		OwnerID: owner.ID.String(),
		Type:    kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   owner.ID.String(),
			Issuer:    f.issuer,
			Audience:  jwt.ClaimStrings(f.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	switch kind {
	case models.TokenAccess:
		c.Email = owner.Email
		c.OwnerKind = owner.Kind
		c.Verified = owner.Verified
	case models.TokenLoginSession:
		c.OwnerKind = owner.Kind
	default:
		c.Email = owner.Email
	}

	return c
}

func (e *Engine) sign(f family, c *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(f.secret)
}

// parse проверяет подпись, алгоритм, издателя, аудиторию, exp (без допуска)
// и тип токена.
func (e *Engine) parse(raw string, kind models.TokenKind) (*Claims, error) {
	f := e.families[kind]
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return f.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(f.issuer),
		jwt.WithAudience(f.audience...),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(e.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}

		return nil, ErrInvalidToken
	}

	if claims.Type != kind {
		return nil, ErrInvalidToken
	}

	owner, err := uuid.Parse(claims.OwnerID)
	if err != nil || claims.Subject != claims.OwnerID {
		return nil, ErrInvalidToken
	}

	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims.owner = owner
	claims.jti = jti

	return claims, nil
}

// Validate проверяет токен вида kind и возвращает его claims.
//
// Для одноразовых видов raw может быть как подписанной строкой, так и id
// записи из ссылки письма; в обоих случаях обязательны и проверка JWT,
// и проверка записи (существует, не использована, не истекла, совпадает).
// Использованный токен неотличим от невалидного.
func (e *Engine) Validate(ctx context.Context, raw string, kind models.TokenKind) (*Claims, error) {
	const op = "tokens.Validate"

	claims, err := e.validate(ctx, strings.TrimSpace(raw), kind)
	if err != nil {
		reason := Reason(err)
		e.metrics.ValidationFailed(string(kind), reason)

		if reason == "error" {
			log.From(ctx).Error("token_validate_failed",
				slog.String("op", op),
				slog.String("kind", string(kind)),
				slog.String("err", err.Error()),
			)
		} else {
			log.From(ctx).Debug("token_rejected",
				slog.String("kind", string(kind)),
				slog.String("reason", reason),
			)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return claims, nil
}

func (e *Engine) validate(ctx context.Context, raw string, kind models.TokenKind) (*Claims, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}

	if raw == "" {
		return nil, ErrMissingToken
	}

	switch {
	case kind == models.TokenAccess:
		return e.validateAccess(ctx, raw)
	case kind == models.TokenLoginSession:
		return e.validateSession(ctx, raw)
	default:
		return e.validateDurable(ctx, raw, kind)
	}
}

func (e *Engine) validateAccess(ctx context.Context, raw string) (*Claims, error) {
	claims, err := e.parse(raw, models.TokenAccess)
	if err != nil {
		return nil, err
	}

	if e.registry.IsBlacklisted(claims.Owner(), raw) {
		return nil, ErrTokenBlacklisted
	}

	if e.mirror != nil {
		revoked, err := e.mirror.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("revocation mirror: %w", err)
		}

		if revoked {
			return nil, ErrTokenBlacklisted
		}
	}

	return claims, nil
}

func (e *Engine) validateSession(ctx context.Context, raw string) (*Claims, error) {
	claims, err := e.parse(raw, models.TokenLoginSession)
	if err != nil {
		return nil, err
	}

	owner, err := e.storage.OwnerByID(ctx, claims.Owner())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}

		return nil, err
	}

	if owner.LoginSession == "" || subtle.ConstantTimeCompare([]byte(owner.LoginSession), []byte(raw)) != 1 {
		return nil, ErrInvalidToken
	}

	if !owner.LoginSessionExpiresAt.After(e.now()) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}

func (e *Engine) validateDurable(ctx context.Context, raw string, kind models.TokenKind) (*Claims, error) {
	var (
		rec    *models.Token
		signed = raw
		err    error
	)

	// id записи из ссылки: проверяем сохранённый токен.
	if id, perr := uuid.Parse(raw); perr == nil {
		if rec, err = e.lookup(ctx, id); err != nil {
			return nil, err
		}
		signed = rec.Token
	}

	claims, err := e.parse(signed, kind)
	if err != nil {
		return nil, err
	}

	if rec == nil {
		if rec, err = e.lookup(ctx, claims.JTI()); err != nil {
			return nil, err
		}
	}

	switch {
	case rec.ID != claims.JTI(),
		rec.Kind != kind,
		rec.OwnerID != claims.Owner(),
		subtle.ConstantTimeCompare([]byte(rec.Token), []byte(signed)) != 1:
		return nil, ErrInvalidToken
	case rec.Used:
		return nil, ErrInvalidToken
	case !rec.ExpiresAt.After(e.now()):
		return nil, ErrTokenExpired
	}

	return claims, nil
}

func (e *Engine) lookup(ctx context.Context, id uuid.UUID) (*models.Token, error) {
	rec, err := e.storage.TokenByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}

		return nil, err
	}

	return rec, nil
}

// Claim атомарно гасит живой одноразовый токен. Из конкурентных вызовов
// для одного id успешен ровно один, остальные получают ErrInvalidToken.
// Вызывается после Validate и до побочного эффекта, который токен разрешает.
func (e *Engine) Claim(ctx context.Context, id uuid.UUID) error {
	const op = "tokens.Claim"

	if err := e.storage.ClaimToken(ctx, id, e.now().UTC()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		log.From(ctx).Error("token_claim_failed",
			slog.String("op", op),
			slog.String("token_id", id.String()),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Consume помечает одноразовый токен использованным. Повторный вызов — no-op.
func (e *Engine) Consume(ctx context.Context, id uuid.UUID) error {
	const op = "tokens.Consume"

	if err := e.storage.ConsumeToken(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		log.From(ctx).Error("token_consume_failed",
			slog.String("op", op),
			slog.String("token_id", id.String()),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RevokeAllForOwner отзывает все живые токены вида kind у владельца:
// одноразовые помечаются использованными, текущий access-токен уходит
// в чёрный список, login-сессия очищается.
func (e *Engine) RevokeAllForOwner(ctx context.Context, ownerID uuid.UUID, kind models.TokenKind) error {
	const op = "tokens.RevokeAllForOwner"

	if _, ok := e.families[kind]; !ok {
		return fmt.Errorf("%s: %w: %q", op, ErrUnknownKind, kind)
	}

	switch kind {
	case models.TokenAccess:
		now := e.now().UTC()
		if prev, ok := e.registry.Revoke(ownerID, now); ok {
			e.mirrorRevoke(ctx, prev, now)
			e.metrics.TokensRevoked(string(kind), 1)
		}

	case models.TokenLoginSession:
		if err := e.storage.SetLoginSession(ctx, ownerID, "", time.Time{}); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrInvalidOwner)
			}

			return fmt.Errorf("%s: %w", op, err)
		}
		e.metrics.TokensRevoked(string(kind), 1)

	default:
		n, err := e.storage.RevokeTokens(ctx, ownerID, kind)
		if err != nil {
			log.From(ctx).Error("token_revoke_failed",
				slog.String("op", op),
				slog.String("kind", string(kind)),
				slog.String("owner_id", ownerID.String()),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("%s: %w", op, err)
		}
		e.metrics.TokensRevoked(string(kind), int(n))
	}

	return nil
}

// RevokeAccessToken отзывает предъявленный access-токен, даже если реестр
// о нём не знает (например, после рестарта).
func (e *Engine) RevokeAccessToken(ctx context.Context, raw string, claims *Claims) {
	now := e.now().UTC()
	entry := registry.Entry{Token: raw, JTI: claims.ID, ExpiresAt: claims.Expiry()}

	e.registry.RevokeToken(claims.Owner(), entry, now)
	e.mirrorRevoke(ctx, entry, now)
	e.metrics.TokensRevoked(string(models.TokenAccess), 1)
}

// SweepBlacklist удаляет из чёрного списка записи, срок которых прошёл.
func (e *Engine) SweepBlacklist() int {
	removed := e.registry.Sweep(e.now().UTC())
	e.metrics.SetBlacklistSize(e.registry.BlacklistSize())

	return removed
}

// PurgeStale удаляет из хранилища истёкшие токены и использованные токены
// старше retention.
func (e *Engine) PurgeStale(ctx context.Context, retention time.Duration) (int64, error) {
	const op = "tokens.PurgeStale"

	n, err := e.storage.DeleteStaleTokens(ctx, e.now().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	e.metrics.StaleTokensPurged(n)

	return n, nil
}

// mirrorRevoke дублирует отзыв в Redis. Ошибка зеркала не отменяет отзыв
// в процессе и только логируется.
func (e *Engine) mirrorRevoke(ctx context.Context, entry registry.Entry, now time.Time) {
	if e.mirror == nil || entry.JTI == "" {
		return
	}

	ttl := e.registry.BlacklistExpiry(entry, now).Sub(now)
	if err := e.mirror.Revoke(ctx, entry.JTI, ttl); err != nil {
		log.From(ctx).Warn("revocation_mirror_failed",
			slog.String("jti", entry.JTI),
			slog.String("err", err.Error()),
		)
	}
}
