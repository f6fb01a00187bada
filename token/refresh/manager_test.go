package refresh_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-property-market/internal/config"
	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-property-market/token/refresh/repofake"
	"github.com/stretchr/testify/require"
)

func TestCreateStoresOnlyHash(t *testing.T) {
	ctx := context.Background()
	repo := refreshrepofake.NewFakeRefreshTokenRepo()
	m := refresh.NewManager(repo, config.Auth{})

	raw, err := m.Create(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, raw, 64)

	_, err = repo.Get(ctx, raw)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	stored, err := repo.Get(ctx, refresh.Hash(raw))
	require.NoError(t, err)
	require.Equal(t, "user-1", stored.UserID)
}

func TestRotateInvalidatesOldToken(t *testing.T) {
	ctx := context.Background()
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), config.Auth{})

	first, err := m.Create(ctx, "user-1")
	require.NoError(t, err)

	userID, second, err := m.Rotate(ctx, first)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
	require.NotEqual(t, first, second)

	_, _, err = m.Rotate(ctx, first)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
}

func TestOnlyOneTokenPerUser(t *testing.T) {
	ctx := context.Background()
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), config.Auth{})

	first, err := m.Create(ctx, "user-1")
	require.NoError(t, err)
	_, err = m.Create(ctx, "user-1")
	require.NoError(t, err)

	_, _, err = m.Rotate(ctx, first)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
}

func TestRotateExpired(t *testing.T) {
	ctx := context.Background()
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), config.Auth{})

	raw, err := m.Create(ctx, "user-1")
	require.NoError(t, err)

	refresh.NowTimeFunc = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	t.Cleanup(func() { refresh.NowTimeFunc = time.Now })

	_, _, err = m.Rotate(ctx, raw)
	require.ErrorIs(t, err, apperrors.ErrRefreshTokenExpired)
}

func TestDeleteIgnoresMissing(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), config.Auth{})
	require.NoError(t, m.Delete(context.Background(), "nobody"))
}

// lookupsMeet makes the first two lookups wait for each other so both rotations read the
// token before either consumes it
type lookupsMeet struct {
	refresh.Repo
	calls atomic.Int32
	meet  sync.WaitGroup
}

func (r *lookupsMeet) Get(ctx context.Context, tokenHash string) (*refresh.StoredRefreshToken, error) {
	stored, err := r.Repo.Get(ctx, tokenHash)
	if r.calls.Add(1) <= 2 {
		r.meet.Done()
		r.meet.Wait()
	}
	return stored, err
}

func TestConcurrentRotateIssuesOneToken(t *testing.T) {
	ctx := context.Background()
	repo := &lookupsMeet{Repo: refreshrepofake.NewFakeRefreshTokenRepo()}
	repo.meet.Add(2)
	m := refresh.NewManager(repo, config.Auth{})

	token, err := m.Create(ctx, "user-1")
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = m.Rotate(ctx, token)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	}
	require.Equal(t, 1, succeeded)
}
