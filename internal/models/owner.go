package models

import (
	"time"

	"github.com/google/uuid"
)

// OwnerKind — тип владельца токенов (арендатора).
type OwnerKind string

const (
	// OwnerUser — физическое лицо.
	OwnerUser OwnerKind = "user"
	// OwnerCompany — компания.
	OwnerCompany OwnerKind = "company"
)

// Valid сообщает, является ли значение известным типом владельца.
func (k OwnerKind) Valid() bool {
	return k == OwnerUser || k == OwnerCompany
}

// Owner — учётная запись пользователя или компании, на которую выпускаются токены.
//
// Поля LoginSession/LoginSessionExpiresAt хранят текущую login-сессию
// прямо в записи владельца (не в таблице токенов): у владельца не более
// одной активной сессии.
type Owner struct {
	ID           uuid.UUID
	Kind         OwnerKind
	Email        string
	PasswordHash string
	Verified     bool
	Name         string

	// Только для компаний.
	BusinessType BusinessType
	Region       Region

	LoginSession          string
	LoginSessionExpiresAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Address — адрес владельца. Удаляется вместе с владельцем.
type Address struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Country   string
	City      string
	Line      string
	CreatedAt time.Time
}
