package store

import (
	"context"
	"testing"

	e "github.com/gartstein/scout/internal/scout/errors"
	"github.com/gartstein/scout/internal/scout/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestDBStore(t *testing.T) *DBStore {
	t.Helper()
	s, err := NewDBStore(&DBConfig{Driver: "sqlite", DSN: ":memory:"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDBStoreEmptyLoad(t *testing.T) {
	s := newTestDBStore(t)

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Companies)
	assert.Empty(t, snap.Token)
}

func TestDBStoreSaveLoadRoundTrip(t *testing.T) {
	s := newTestDBStore(t)
	ctx := context.Background()

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	snap.Companies = models.Collection{{ID: 1, Name: "Acme", Category: models.CategoryFintech}}

	token, err := s.Save(ctx, snap, "seed dataset")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, loaded.Token)
	require.Len(t, loaded.Companies, 1)
	assert.Equal(t, models.CategoryFintech, loaded.Companies[0].Category)
}

func TestDBStoreStaleTokenConflict(t *testing.T) {
	s := newTestDBStore(t)
	ctx := context.Background()

	first, err := s.Load(ctx)
	require.NoError(t, err)
	second, err := s.Load(ctx)
	require.NoError(t, err)

	first.Companies = models.Collection{{ID: 1, Name: "Acme"}}
	_, err = s.Save(ctx, first, "writer one")
	require.NoError(t, err)

	second.Companies = models.Collection{{ID: 1, Name: "Beta"}}
	_, err = s.Save(ctx, second, "writer two")
	assert.ErrorIs(t, err, e.ErrConflict)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme", loaded.Companies[0].Name)
}

func TestDBStoreSaveAdvancesToken(t *testing.T) {
	s := newTestDBStore(t)
	ctx := context.Background()

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	snap.Companies = models.Collection{{ID: 1, Name: "Acme"}}

	// Saving updates the held token, so consecutive saves from the same
	// snapshot keep succeeding.
	t1, err := s.Save(ctx, snap, "first")
	require.NoError(t, err)
	snap.Companies = append(snap.Companies, models.Company{ID: 2, Name: "Beta"})
	t2, err := s.Save(ctx, snap, "second")
	require.NoError(t, err)
	assert.NotEqual(t, t1, t2)
}

func TestDBStoreHistoryNewestFirst(t *testing.T) {
	s := newTestDBStore(t)
	ctx := context.Background()

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	for _, name := range []string{"Acme", "Beta", "Gamma"} {
		snap.Companies = append(snap.Companies, models.Company{Name: name})
		_, err = s.Save(ctx, snap, "add "+name)
		require.NoError(t, err)
	}

	changes, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, changes, 3)
	assert.Equal(t, "add Gamma", changes[0].Message)
	assert.Equal(t, "add Acme", changes[2].Message)

	capped, err := s.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, "add Gamma", capped[0].Message)
}

func TestDBStoreUnknownDriver(t *testing.T) {
	_, err := NewDBStore(&DBConfig{Driver: "oracle"}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, e.ErrConfiguration)
}
