package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	e "github.com/gartstein/scout/internal/scout/errors"
	"github.com/gartstein/scout/internal/scout/models"
	"github.com/gartstein/scout/internal/scout/runner"
	"github.com/gartstein/scout/internal/scout/sources"
	"github.com/gartstein/scout/internal/scout/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeStore returns canned collections on successive loads and fails the
// first conflictSaves saves with ErrConflict.
type fakeStore struct {
	companies     models.Collection
	loads         int
	saves         int
	conflictSaves int
	lastMessage   string
}

func (f *fakeStore) Load(_ context.Context) (*store.Snapshot, error) {
	f.loads++
	cc := make(models.Collection, len(f.companies))
	copy(cc, f.companies)
	return &store.Snapshot{Companies: cc, Token: fmt.Sprintf("tok-%d", f.loads)}, nil
}

func (f *fakeStore) Save(_ context.Context, snap *store.Snapshot, message string) (string, error) {
	f.saves++
	if f.saves <= f.conflictSaves {
		return "", fmt.Errorf("%w: lost the race", e.ErrConflict)
	}
	f.companies = snap.Companies
	f.lastMessage = message
	return "saved", nil
}

func (f *fakeStore) History(_ context.Context, _ int) ([]store.Change, error) {
	return nil, nil
}

// nullConnector is a minimal connector for wiring tests.
type nullConnector struct{ name string }

func (n *nullConnector) Name() string         { return n.name }
func (n *nullConnector) TTLDays() int         { return 7 }
func (n *nullConnector) Delay() time.Duration { return 0 }

func (n *nullConnector) LastAttempt(c *models.Company) *time.Time {
	if c.HN == nil {
		return nil
	}
	return &c.HN.EnrichedAt
}

func (n *nullConnector) HasResult(c *models.Company) bool {
	return c.HN != nil && c.HN.StoryCount > 0
}

func (n *nullConnector) Enrich(_ context.Context, c *models.Company) error {
	c.HN = &models.HNSignal{StoryCount: 1, EnrichedAt: time.Now()}
	return nil
}

func TestRunSignalsSavesSummary(t *testing.T) {
	fs := &fakeStore{companies: models.Collection{{ID: 1, Name: "Acme"}}}
	p := New(Deps{Store: fs, Connectors: []sources.Connector{&nullConnector{name: "hn"}}}, zaptest.NewLogger(t))

	require.NoError(t, p.RunSignals(context.Background(), nil, runner.ModeFull, false))
	assert.Equal(t, 1, fs.saves)
	assert.Equal(t, "Signal enrichment: 1 refreshed, 0 failed, 0 skipped", fs.lastMessage)
}

func TestRunSignalsIncrementalHonorsConfiguredLimit(t *testing.T) {
	// Three records with a prior non-empty result, limit 1: the standalone
	// incremental run refreshes exactly one of them.
	stamp := time.Now().Add(-30 * 24 * time.Hour)
	fs := &fakeStore{companies: models.Collection{
		{ID: 1, Name: "Acme", HN: &models.HNSignal{StoryCount: 2, EnrichedAt: stamp}},
		{ID: 2, Name: "Beta", HN: &models.HNSignal{StoryCount: 5, EnrichedAt: stamp}},
		{ID: 3, Name: "Gamma", HN: &models.HNSignal{StoryCount: 1, EnrichedAt: stamp}},
	}}
	p := New(Deps{
		Store:            fs,
		Connectors:       []sources.Connector{&nullConnector{name: "hn"}},
		IncrementalLimit: 1,
	}, zaptest.NewLogger(t))

	require.NoError(t, p.RunSignals(context.Background(), nil, runner.ModeIncremental, false))
	assert.Equal(t, "Signal enrichment: 1 refreshed, 0 failed, 2 skipped", fs.lastMessage)
}

func TestRunSignalsIncrementalSkipsNeverAttempted(t *testing.T) {
	fs := &fakeStore{companies: models.Collection{{ID: 1, Name: "Acme"}}}
	p := New(Deps{
		Store:            fs,
		Connectors:       []sources.Connector{&nullConnector{name: "hn"}},
		IncrementalLimit: 10,
	}, zaptest.NewLogger(t))

	require.NoError(t, p.RunSignals(context.Background(), nil, runner.ModeIncremental, false))
	assert.Equal(t, "Signal enrichment: 0 refreshed, 0 failed, 1 skipped", fs.lastMessage)
}

func TestRunSignalsUnknownSource(t *testing.T) {
	fs := &fakeStore{}
	p := New(Deps{Store: fs, Connectors: []sources.Connector{&nullConnector{name: "hn"}}}, zaptest.NewLogger(t))

	err := p.RunSignals(context.Background(), []string{"nope"}, runner.ModeFull, false)
	assert.ErrorIs(t, err, e.ErrConfiguration)
	assert.Zero(t, fs.loads)
}

func TestConflictRedoneOnce(t *testing.T) {
	fs := &fakeStore{
		companies:     models.Collection{{ID: 1, Name: "Acme"}},
		conflictSaves: 1,
	}
	p := New(Deps{Store: fs, Connectors: []sources.Connector{&nullConnector{name: "hn"}}}, zaptest.NewLogger(t))

	require.NoError(t, p.RunSignals(context.Background(), nil, runner.ModeFull, false))
	// First save conflicts, the run reloads and redoes, second save lands.
	assert.Equal(t, 2, fs.loads)
	assert.Equal(t, 2, fs.saves)
}

func TestSecondConflictSurfaces(t *testing.T) {
	fs := &fakeStore{
		companies:     models.Collection{{ID: 1, Name: "Acme"}},
		conflictSaves: 2,
	}
	p := New(Deps{Store: fs, Connectors: []sources.Connector{&nullConnector{name: "hn"}}}, zaptest.NewLogger(t))

	err := p.RunSignals(context.Background(), nil, runner.ModeFull, false)
	assert.ErrorIs(t, err, e.ErrConflict)
	assert.Equal(t, 2, fs.loads)
}

func TestRunLeadershipWithoutMerger(t *testing.T) {
	p := New(Deps{Store: &fakeStore{}}, zaptest.NewLogger(t))
	assert.ErrorIs(t, p.RunLeadership(context.Background(), false), e.ErrConfiguration)
}

func TestRunNewsWithoutExtractor(t *testing.T) {
	p := New(Deps{Store: &fakeStore{}}, zaptest.NewLogger(t))
	assert.ErrorIs(t, p.RunNews(context.Background()), e.ErrConfiguration)
}
