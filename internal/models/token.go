package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind — назначение токена.
type TokenKind string

const (
	TokenAccess              TokenKind = "access"
	TokenEmailVerification   TokenKind = "email_verification"
	TokenAccountVerification TokenKind = "account_verification"
	TokenResetPassword       TokenKind = "reset_password"
	TokenLoginSession        TokenKind = "login_session"
)

// TokenKinds перечисляет все известные виды токенов.
var TokenKinds = []TokenKind{
	TokenAccess,
	TokenEmailVerification,
	TokenAccountVerification,
	TokenResetPassword,
	TokenLoginSession,
}

// Valid сообщает, является ли значение известным видом токена.
func (k TokenKind) Valid() bool {
	for _, v := range TokenKinds {
		if v == k {
			return true
		}
	}

	return false
}

// Durable сообщает, хранится ли токен этого вида в таблице токенов.
// Access живёт только в памяти процесса, login-сессия — в записи владельца.
func (k TokenKind) Durable() bool {
	switch k {
	case TokenEmailVerification, TokenAccountVerification, TokenResetPassword:
		return true
	default:
		return false
	}
}

// VerificationKindFor возвращает вид верификационного токена для типа владельца:
// компании подтверждают аккаунт, пользователи — e-mail.
func VerificationKindFor(kind OwnerKind) TokenKind {
	if kind == OwnerCompany {
		return TokenAccountVerification
	}

	return TokenEmailVerification
}

// Token — долговременная запись одноразового токена.
//
// ID совпадает с claim jti подписанного токена и используется в ссылках
// из писем вместо самого JWT.
type Token struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Kind      TokenKind
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Live сообщает, может ли токен ещё быть предъявлен в момент now.
func (t *Token) Live(now time.Time) bool {
	return !t.Used && t.ExpiresAt.After(now)
}
