package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-tenant-auth/internal/models"
	"github.com/pribylovaa/go-tenant-auth/internal/storage"
)

func newToken(ownerID uuid.UUID, kind models.TokenKind, ttl time.Duration) *models.Token {
	now := time.Now().UTC()
	return &models.Token{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Kind:      kind,
		Token:     "signed-" + uuid.NewString(),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

func TestIntegration_ReplaceToken_KeepsSingleUnused(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	o := seedOwner(t, st, "single@example.com")

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		tok := newToken(o.ID, models.TokenEmailVerification, time.Hour)
		require.NoError(t, st.ReplaceToken(ctx, tok))
		ids = append(ids, tok.ID)
	}

	// Токен другого вида не затрагивается.
	other := newToken(o.ID, models.TokenResetPassword, time.Hour)
	require.NoError(t, st.ReplaceToken(ctx, other))

	for i, id := range ids {
		got, err := st.TokenByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, i != len(ids)-1, got.Used, "token #%d", i)
	}

	got, err := st.TokenByID(ctx, other.ID)
	require.NoError(t, err)
	require.False(t, got.Used)
}

func TestIntegration_ReplaceToken_UnknownOwner(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	err := st.ReplaceToken(context.Background(), newToken(uuid.New(), models.TokenResetPassword, time.Hour))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_ReplaceToken_ConcurrentIssuersLeaveOneUnused(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	o := seedOwner(t, st, "race@example.com")

	const n = 8
	toks := make([]*models.Token, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		toks[i] = newToken(o.ID, models.TokenResetPassword, time.Hour)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = st.ReplaceToken(ctx, toks[i])
		}(i)
	}
	wg.Wait()

	unused := 0
	for i := range toks {
		require.NoError(t, errs[i])
		got, err := st.TokenByID(ctx, toks[i].ID)
		require.NoError(t, err)
		if !got.Used {
			unused++
		}
	}
	require.Equal(t, 1, unused)
}

func TestIntegration_ConsumeToken_Idempotent(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	o := seedOwner(t, st, "consume@example.com")
	tok := newToken(o.ID, models.TokenEmailVerification, time.Hour)
	require.NoError(t, st.ReplaceToken(ctx, tok))

	require.NoError(t, st.ConsumeToken(ctx, tok.ID))
	require.NoError(t, st.ConsumeToken(ctx, tok.ID))

	got, err := st.TokenByID(ctx, tok.ID)
	require.NoError(t, err)
	require.True(t, got.Used)

	require.ErrorIs(t, st.ConsumeToken(ctx, uuid.New()), storage.ErrNotFound)
}

// Из конкурентных ClaimToken для одного токена успешен ровно один.
func TestIntegration_ClaimToken_SingleWinner(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	o := seedOwner(t, st, "claim@example.com")
	tok := newToken(o.ID, models.TokenResetPassword, time.Hour)
	require.NoError(t, st.ReplaceToken(ctx, tok))

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := st.ClaimToken(ctx, tok.ID, time.Now().UTC()); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	require.ErrorIs(t, st.ClaimToken(ctx, tok.ID, time.Now().UTC()), storage.ErrNotFound)

	got, err := st.TokenByID(ctx, tok.ID)
	require.NoError(t, err)
	require.True(t, got.Used)
}

func TestIntegration_ClaimToken_ExpiredOrUnknown(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	o := seedOwner(t, st, "claim-exp@example.com")
	tok := newToken(o.ID, models.TokenEmailVerification, time.Hour)
	require.NoError(t, st.ReplaceToken(ctx, tok))

	require.ErrorIs(t, st.ClaimToken(ctx, tok.ID, tok.ExpiresAt.Add(time.Second)), storage.ErrNotFound)
	require.ErrorIs(t, st.ClaimToken(ctx, uuid.New(), time.Now().UTC()), storage.ErrNotFound)

	got, err := st.TokenByID(ctx, tok.ID)
	require.NoError(t, err)
	require.False(t, got.Used)
}

func TestIntegration_RevokeTokens_And_DeleteStale(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	o := seedOwner(t, st, "stale@example.com")

	live := newToken(o.ID, models.TokenResetPassword, time.Hour)
	require.NoError(t, st.ReplaceToken(ctx, live))

	n, err := st.RevokeTokens(ctx, o.ID, models.TokenResetPassword)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = st.RevokeTokens(ctx, o.ID, models.TokenResetPassword)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)

	expired := newToken(o.ID, models.TokenEmailVerification, -time.Minute)
	require.NoError(t, st.ReplaceToken(ctx, expired))

	fresh := newToken(o.ID, models.TokenAccountVerification, time.Hour)
	require.NoError(t, st.ReplaceToken(ctx, fresh))

	deleted, err := st.DeleteStaleTokens(ctx, time.Now().UTC().Add(time.Second))
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	_, err = st.TokenByID(ctx, fresh.ID)
	require.NoError(t, err)
}
