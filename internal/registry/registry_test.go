package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func entry(token string, exp time.Time) Entry {
	return Entry{Token: token, JTI: uuid.NewString(), ExpiresAt: exp}
}

func TestReplace_BlacklistsPrevious(t *testing.T) {
	t.Parallel()

	r := New(30 * time.Minute)
	owner := uuid.New()

	_, replaced := r.Replace(owner, entry("first", t0.Add(15*time.Minute)), t0)
	require.False(t, replaced)
	require.False(t, r.IsBlacklisted(owner, "first"))

	prev, replaced := r.Replace(owner, entry("second", t0.Add(15*time.Minute)), t0)
	require.True(t, replaced)
	require.Equal(t, "first", prev.Token)

	require.True(t, r.IsBlacklisted(owner, "first"))
	require.False(t, r.IsBlacklisted(owner, "second"))

	cur, ok := r.Current(owner)
	require.True(t, ok)
	require.Equal(t, "second", cur.Token)

	// Чужой владелец не затронут.
	require.False(t, r.IsBlacklisted(uuid.New(), "first"))
}

func TestRevoke_RemovesCurrent(t *testing.T) {
	t.Parallel()

	r := New(time.Minute)
	owner := uuid.New()

	_, ok := r.Revoke(owner, t0)
	require.False(t, ok)

	r.Replace(owner, entry("tok", t0.Add(time.Hour)), t0)
	prev, ok := r.Revoke(owner, t0)
	require.True(t, ok)
	require.Equal(t, "tok", prev.Token)

	_, ok = r.Current(owner)
	require.False(t, ok)
	require.True(t, r.IsBlacklisted(owner, "tok"))
}

func TestRevokeToken_NotCurrent(t *testing.T) {
	t.Parallel()

	r := New(time.Minute)
	owner := uuid.New()
	r.Replace(owner, entry("current", t0.Add(time.Hour)), t0)

	r.RevokeToken(owner, entry("stale", t0.Add(time.Hour)), t0)
	require.True(t, r.IsBlacklisted(owner, "stale"))

	cur, ok := r.Current(owner)
	require.True(t, ok)
	require.Equal(t, "current", cur.Token)

	r.RevokeToken(owner, cur, t0)
	_, ok = r.Current(owner)
	require.False(t, ok)
}

func TestBlacklistExpiry_NeverShorterThanTokenLifetime(t *testing.T) {
	t.Parallel()

	r := New(30 * time.Minute)

	short := entry("short", t0.Add(5*time.Minute))
	require.Equal(t, t0.Add(30*time.Minute), r.BlacklistExpiry(short, t0))

	long := entry("long", t0.Add(2*time.Hour))
	require.Equal(t, t0.Add(2*time.Hour), r.BlacklistExpiry(long, t0))
}

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	t.Parallel()

	r := New(30 * time.Minute)
	a, b := uuid.New(), uuid.New()

	r.Replace(a, entry("a1", t0.Add(time.Minute)), t0)
	r.Replace(a, entry("a2", t0.Add(time.Minute)), t0) // a1 -> до t0+30m
	r.Replace(b, entry("b1", t0.Add(2*time.Hour)), t0)
	r.Replace(b, entry("b2", t0.Add(2*time.Hour)), t0) // b1 -> до t0+2h

	require.Equal(t, 2, r.BlacklistSize())

	// Ровно на границе запись ещё не удаляется.
	require.Equal(t, 0, r.Sweep(t0.Add(30*time.Minute)))

	require.Equal(t, 1, r.Sweep(t0.Add(31*time.Minute)))
	require.False(t, r.IsBlacklisted(a, "a1"))
	require.True(t, r.IsBlacklisted(b, "b1"))
	require.Equal(t, 1, r.BlacklistSize())

	require.Equal(t, 1, r.Sweep(t0.Add(3*time.Hour)))
	require.Equal(t, 0, r.BlacklistSize())
}

// Конкурентные Replace одного владельца: ровно один текущий токен,
// все остальные в чёрном списке.
func TestReplace_ConcurrentSameOwner(t *testing.T) {
	t.Parallel()

	r := New(time.Minute)
	owner := uuid.New()

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Replace(owner, entry(uuid.NewString(), t0.Add(time.Hour)), t0)
		}(i)
	}
	wg.Wait()

	cur, ok := r.Current(owner)
	require.True(t, ok)
	require.False(t, r.IsBlacklisted(owner, cur.Token))
	require.Equal(t, n-1, r.BlacklistSize())
}

func TestConcurrentOwners_SweepAndReplace(t *testing.T) {
	t.Parallel()

	r := New(time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			owner := uuid.New()
			for j := 0; j < 50; j++ {
				r.Replace(owner, entry(uuid.NewString(), t0), t0)
				_ = r.IsBlacklisted(owner, "x")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Sweep(t0.Add(time.Hour))
				_ = r.BlacklistSize()
			}
		}()
	}
	wg.Wait()

	r.Sweep(t0.Add(time.Hour))
	require.Equal(t, 0, r.BlacklistSize())
}
