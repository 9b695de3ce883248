// Package memory — реализация storage.Storage в памяти процесса для локального
// запуска (db.driver: memory) и тестов. Семантика совпадает с postgres:
// email уникален без учёта регистра, замена токена атомарна, удаление
// владельца каскадное.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-tenant-auth/internal/models"
	"github.com/pribylovaa/go-tenant-auth/internal/storage"
)

// Storage — потокобезопасное хранилище в памяти.
type Storage struct {
	mu        sync.RWMutex
	owners    map[uuid.UUID]models.Owner
	byEmail   map[string]uuid.UUID
	addresses map[uuid.UUID][]models.Address
	tokens    map[uuid.UUID]models.Token
}

var _ storage.Storage = (*Storage)(nil)

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		owners:    make(map[uuid.UUID]models.Owner),
		byEmail:   make(map[string]uuid.UUID),
		addresses: make(map[uuid.UUID][]models.Address),
		tokens:    make(map[uuid.UUID]models.Token),
	}
}

func (s *Storage) Close() {}

func emailKey(email string) string { return strings.ToLower(email) }

func (s *Storage) SaveOwner(ctx context.Context, owner *models.Owner, addrs ...models.Address) error {
	const op = "storage.memory.SaveOwner"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.owners[owner.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	key := emailKey(owner.Email)
	if _, ok := s.byEmail[key]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	s.owners[owner.ID] = *owner
	s.byEmail[key] = owner.ID

	for _, addr := range addrs {
		addr.OwnerID = owner.ID
		s.addresses[owner.ID] = append(s.addresses[owner.ID], addr)
	}

	return nil
}

func (s *Storage) OwnerByID(ctx context.Context, id uuid.UUID) (*models.Owner, error) {
	const op = "storage.memory.OwnerByID"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.owners[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &o, nil
}

func (s *Storage) OwnerByEmail(ctx context.Context, email string) (*models.Owner, error) {
	const op = "storage.memory.OwnerByEmail"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	o := s.owners[id]
	return &o, nil
}

func (s *Storage) UpdateOwner(ctx context.Context, owner *models.Owner) error {
	const op = "storage.memory.UpdateOwner"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.owners[owner.ID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	oldKey, newKey := emailKey(cur.Email), emailKey(owner.Email)
	if oldKey != newKey {
		if _, taken := s.byEmail[newKey]; taken {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}
		delete(s.byEmail, oldKey)
		s.byEmail[newKey] = owner.ID
	}

	cur.Email = owner.Email
	cur.PasswordHash = owner.PasswordHash
	cur.Verified = owner.Verified
	cur.UpdatedAt = owner.UpdatedAt
	s.owners[owner.ID] = cur

	return nil
}

func (s *Storage) SetLoginSession(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	const op = "storage.memory.SetLoginSession"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.owners[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if token == "" {
		expiresAt = time.Time{}
	}
	cur.LoginSession = token
	cur.LoginSessionExpiresAt = expiresAt
	s.owners[id] = cur

	return nil
}

func (s *Storage) DeleteOwner(ctx context.Context, id uuid.UUID) error {
	const op = "storage.memory.DeleteOwner"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.owners[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	for tid, t := range s.tokens {
		if t.OwnerID == id {
			delete(s.tokens, tid)
		}
	}
	delete(s.addresses, id)
	delete(s.byEmail, emailKey(cur.Email))
	delete(s.owners, id)

	return nil
}

func (s *Storage) AddressesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Address, error) {
	const op = "storage.memory.AddressesByOwner"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]models.Address(nil), s.addresses[ownerID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

func (s *Storage) ReplaceToken(ctx context.Context, token *models.Token) error {
	const op = "storage.memory.ReplaceToken"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.owners[token.OwnerID]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if _, ok := s.tokens[token.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	for id, t := range s.tokens {
		if t.OwnerID == token.OwnerID && t.Kind == token.Kind && !t.Used {
			t.Used = true
			s.tokens[id] = t
		}
	}
	s.tokens[token.ID] = *token

	return nil
}

func (s *Storage) TokenByID(ctx context.Context, id uuid.UUID) (*models.Token, error) {
	const op = "storage.memory.TokenByID"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &t, nil
}

func (s *Storage) ClaimToken(ctx context.Context, id uuid.UUID, now time.Time) error {
	const op = "storage.memory.ClaimToken"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[id]
	if !ok || !t.Live(now) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	t.Used = true
	s.tokens[id] = t

	return nil
}

func (s *Storage) ConsumeToken(ctx context.Context, id uuid.UUID) error {
	const op = "storage.memory.ConsumeToken"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	t.Used = true
	s.tokens[id] = t

	return nil
}

func (s *Storage) RevokeTokens(ctx context.Context, ownerID uuid.UUID, kind models.TokenKind) (int64, error) {
	const op = "storage.memory.RevokeTokens"

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, t := range s.tokens {
		if t.OwnerID == ownerID && t.Kind == kind && !t.Used {
			t.Used = true
			s.tokens[id] = t
			n++
		}
	}

	return n, nil
}

func (s *Storage) DeleteStaleTokens(ctx context.Context, before time.Time) (int64, error) {
	const op = "storage.memory.DeleteStaleTokens"

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, t := range s.tokens {
		if !t.ExpiresAt.After(before) || (t.Used && !t.CreatedAt.After(before)) {
			delete(s.tokens, id)
			n++
		}
	}

	return n, nil
}
