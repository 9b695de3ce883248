// Package registry хранит текущий access-токен каждого владельца и чёрный
// список отозванных токенов.
//
// Состояние живёт только в памяти процесса и теряется при рестарте: после
// перезапуска ранее отозванные, но ещё не истёкшие токены снова проходят
// проверку, если не настроено зеркало отзывов в Redis. Источником истины для
// долговременных токенов registry не является.
//
// Доступ разбит на шарды по владельцу, каждый под своим мьютексом.
// Методы не выполняют I/O.
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const shardCount = 32

// Entry — выпущенный access-токен.
type Entry struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

type shard struct {
	mu        sync.RWMutex
	active    map[uuid.UUID]Entry
	blacklist map[uuid.UUID]map[string]time.Time
}

// Registry — потокобезопасный реестр access-токенов.
type Registry struct {
	grace  time.Duration
	shards [shardCount]*shard
}

// New создаёт реестр. grace — минимальное время хранения токена в чёрном
// списке; фактический срок не короче оставшейся жизни самого токена.
func New(grace time.Duration) *Registry {
	r := &Registry{grace: grace}
	for i := range r.shards {
		r.shards[i] = &shard{
			active:    make(map[uuid.UUID]Entry),
			blacklist: make(map[uuid.UUID]map[string]time.Time),
		}
	}

	return r
}

func (r *Registry) shardFor(owner uuid.UUID) *shard {
	return r.shards[int(owner[15])%shardCount]
}

// Current возвращает текущий токен владельца.
func (r *Registry) Current(owner uuid.UUID) (Entry, bool) {
	s := r.shardFor(owner)
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.active[owner]
	return e, ok
}

// Replace регистрирует next как текущий токен владельца. Предыдущий токен,
// если он был, переносится в чёрный список и возвращается.
// Отзыв и регистрация выполняются под одной блокировкой шарда.
func (r *Registry) Replace(owner uuid.UUID, next Entry, now time.Time) (Entry, bool) {
	s := r.shardFor(owner)
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.active[owner]
	if ok {
		r.blacklistLocked(s, owner, prev, now)
	}
	s.active[owner] = next

	return prev, ok
}

// Revoke отзывает текущий токен владельца.
func (r *Registry) Revoke(owner uuid.UUID, now time.Time) (Entry, bool) {
	s := r.shardFor(owner)
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.active[owner]
	if !ok {
		return Entry{}, false
	}

	r.blacklistLocked(s, owner, prev, now)
	delete(s.active, owner)

	return prev, true
}

// RevokeToken отзывает конкретный токен, даже если он уже не текущий
// (например, после рестарта реестр пуст, а клиент предъявил старый токен).
// Если это текущий токен, он снимается с регистрации.
func (r *Registry) RevokeToken(owner uuid.UUID, e Entry, now time.Time) {
	s := r.shardFor(owner)
	s.mu.Lock()
	defer s.mu.Unlock()

	r.blacklistLocked(s, owner, e, now)
	if cur, ok := s.active[owner]; ok && cur.Token == e.Token {
		delete(s.active, owner)
	}
}

// IsBlacklisted сообщает, отозван ли токен владельца.
func (r *Registry) IsBlacklisted(owner uuid.UUID, token string) bool {
	s := r.shardFor(owner)
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.blacklist[owner][token]
	return ok
}

// BlacklistExpiry возвращает срок хранения токена в чёрном списке,
// если бы он был отозван в момент now.
func (r *Registry) BlacklistExpiry(e Entry, now time.Time) time.Time {
	exp := now.Add(r.grace)
	if e.ExpiresAt.After(exp) {
		exp = e.ExpiresAt
	}

	return exp
}

// Sweep удаляет из чёрного списка записи со сроком раньше now
// и возвращает их количество.
func (r *Registry) Sweep(now time.Time) int {
	removed := 0
	for _, s := range r.shards {
		s.mu.Lock()
		for owner, tokens := range s.blacklist {
			for token, exp := range tokens {
				if exp.Before(now) {
					delete(tokens, token)
					removed++
				}
			}
			if len(tokens) == 0 {
				delete(s.blacklist, owner)
			}
		}
		s.mu.Unlock()
	}

	return removed
}

// BlacklistSize возвращает число токенов в чёрном списке.
func (r *Registry) BlacklistSize() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		for _, tokens := range s.blacklist {
			n += len(tokens)
		}
		s.mu.RUnlock()
	}

	return n
}

func (r *Registry) blacklistLocked(s *shard, owner uuid.UUID, e Entry, now time.Time) {
	tokens := s.blacklist[owner]
	if tokens == nil {
		tokens = make(map[string]time.Time)
		s.blacklist[owner] = tokens
	}

	exp := r.BlacklistExpiry(e, now)
	if cur, ok := tokens[e.Token]; !ok || exp.After(cur) {
		tokens[e.Token] = exp
	}
}
