package consensus

import (
	"context"
	"errors"
	"testing"

	"github.com/gartstein/scout/internal/scout/llm"
	"github.com/gartstein/scout/internal/scout/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubProvider struct {
	name  string
	reply string
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Complete(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.reply, s.err
}

func TestMajorityVoteTwoOfThree(t *testing.T) {
	// Two providers agree on Jane Doe for CEO; each proposes a different CTO.
	// Only the agreed pair survives the 2-vote threshold.
	a := &stubProvider{name: "a", reply: `{"Acme": [{"role":"CEO","name":"Jane Doe"},{"role":"CTO","name":"Alan Ada"}]}`}
	b := &stubProvider{name: "b", reply: `{"Acme": [{"role":"CEO","name":"jane doe "},{"role":"CTO","name":"Bob Byte"}]}`}
	c := &stubProvider{name: "c", reply: `{"Acme": [{"role":"CEO","name":"John Roe"}]}`}

	m := NewMerger([]llm.Provider{a, b, c}, 0, zaptest.NewLogger(t))
	cc := models.Collection{{ID: 1, Name: "Acme"}}

	updated, err := m.Enrich(context.Background(), cc, false)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	require.Len(t, cc[0].Leadership, 1)
	assert.Equal(t, "CEO", cc[0].Leadership[0].Role)
	assert.Equal(t, "Jane Doe", cc[0].Leadership[0].Name)
	assert.Equal(t, models.LeadershipConsensus, cc[0].LeadershipSource)
}

func TestSingleProviderPassThrough(t *testing.T) {
	p := &stubProvider{name: "solo", reply: `{"Acme": [{"role":"CEO","name":"Jane Doe"},{"role":"CTO","name":"Alan Ada"}]}`}

	m := NewMerger([]llm.Provider{p}, 0, zaptest.NewLogger(t))
	cc := models.Collection{{ID: 1, Name: "Acme"}}

	updated, err := m.Enrich(context.Background(), cc, false)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Len(t, cc[0].Leadership, 2)
	assert.Equal(t, "solo", cc[0].LeadershipSource)
}

func TestParseFailureExcludesProvider(t *testing.T) {
	// The unparseable provider is dropped; the two healthy ones still form a
	// quorum and their agreement passes.
	a := &stubProvider{name: "a", reply: `{"Acme": [{"role":"CEO","name":"Jane Doe"}]}`}
	b := &stubProvider{name: "b", reply: `{"Acme": [{"role":"CEO","name":"Jane Doe"}]}`}
	c := &stubProvider{name: "c", reply: `I am sorry, I cannot produce JSON today.`}

	m := NewMerger([]llm.Provider{a, b, c}, 0, zaptest.NewLogger(t))
	cc := models.Collection{{ID: 1, Name: "Acme"}}

	updated, err := m.Enrich(context.Background(), cc, false)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	require.Len(t, cc[0].Leadership, 1)
	assert.Equal(t, models.LeadershipConsensus, cc[0].LeadershipSource)
}

func TestNoAgreementFallsBackToKnownCEO(t *testing.T) {
	a := &stubProvider{name: "a", reply: `{"Acme": [{"role":"CEO","name":"Jane Doe"}]}`}
	b := &stubProvider{name: "b", reply: `{"Acme": [{"role":"CEO","name":"John Roe"}]}`}

	m := NewMerger([]llm.Provider{a, b}, 0, zaptest.NewLogger(t))
	cc := models.Collection{{ID: 1, Name: "Acme", CEO: "Jane Doe"}}

	updated, err := m.Enrich(context.Background(), cc, false)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	require.Len(t, cc[0].Leadership, 1)
	assert.Equal(t, models.LeadershipEntry{Role: "CEO", Name: "Jane Doe"}, cc[0].Leadership[0])
	assert.Equal(t, models.LeadershipFallback, cc[0].LeadershipSource)
}

func TestAllProvidersDownSingleMode(t *testing.T) {
	p := &stubProvider{name: "solo", err: errors.New("rate limited")}

	m := NewMerger([]llm.Provider{p}, 0, zaptest.NewLogger(t))
	cc := models.Collection{
		{ID: 1, Name: "Acme", CEO: "Jane Doe"},
		{ID: 2, Name: "Beta"},
	}

	updated, err := m.Enrich(context.Background(), cc, false)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, models.LeadershipFallback, cc[0].LeadershipSource)
	assert.Empty(t, cc[1].Leadership)
}

func TestAllProvidersDownMultiModeLeavesBatchUntouched(t *testing.T) {
	a := &stubProvider{name: "a", err: errors.New("down")}
	b := &stubProvider{name: "b", err: errors.New("down")}

	m := NewMerger([]llm.Provider{a, b}, 0, zaptest.NewLogger(t))
	cc := models.Collection{{ID: 1, Name: "Acme", CEO: "Jane Doe"}}

	updated, err := m.Enrich(context.Background(), cc, false)
	require.NoError(t, err)
	assert.Zero(t, updated)
	assert.Empty(t, cc[0].Leadership)
}

func TestEmptyMergeNeverClearsExistingList(t *testing.T) {
	a := &stubProvider{name: "a", reply: `{"Acme": []}`}
	b := &stubProvider{name: "b", reply: `{"Acme": []}`}

	m := NewMerger([]llm.Provider{a, b}, 0, zaptest.NewLogger(t))
	prior := []models.LeadershipEntry{{Role: "CEO", Name: "Jane Doe"}}
	cc := models.Collection{{ID: 1, Name: "Acme", Leadership: prior, LeadershipSource: models.LeadershipConsensus}}

	// Force re-enriches records that already have leadership.
	updated, err := m.Enrich(context.Background(), cc, true)
	require.NoError(t, err)
	assert.Zero(t, updated)
	assert.Equal(t, prior, cc[0].Leadership)
	assert.Equal(t, models.LeadershipConsensus, cc[0].LeadershipSource)
}

func TestRecordsWithLeadershipSkippedWithoutForce(t *testing.T) {
	p := &stubProvider{name: "solo", reply: `{"Beta": [{"role":"CEO","name":"Bo Beta"}]}`}

	m := NewMerger([]llm.Provider{p}, 0, zaptest.NewLogger(t))
	cc := models.Collection{
		{ID: 1, Name: "Acme", Leadership: []models.LeadershipEntry{{Role: "CEO", Name: "Jane Doe"}}},
		{ID: 2, Name: "Beta"},
	}

	updated, err := m.Enrich(context.Background(), cc, false)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, "Jane Doe", cc[0].Leadership[0].Name)
	assert.Equal(t, "Bo Beta", cc[1].Leadership[0].Name)
	assert.Equal(t, 1, p.calls)
}

func TestCaseInsensitiveCompanyKeyLookup(t *testing.T) {
	p := &stubProvider{name: "solo", reply: `{"ACME": [{"role":"CEO","name":"Jane Doe"}]}`}

	m := NewMerger([]llm.Provider{p}, 0, zaptest.NewLogger(t))
	cc := models.Collection{{ID: 1, Name: "Acme"}}

	updated, err := m.Enrich(context.Background(), cc, false)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, "Jane Doe", cc[0].Leadership[0].Name)
}

func TestMergeVotesOrdering(t *testing.T) {
	votes := [][]models.LeadershipEntry{
		{{Role: "CTO", Name: "Alan Ada"}, {Role: "CEO", Name: "Jane Doe"}},
		{{Role: "CEO", Name: "Jane Doe"}, {Role: "CTO", Name: "Alan Ada"}},
		{{Role: "CEO", Name: "Jane Doe"}},
	}
	merged := mergeVotes(votes, 3)
	require.Len(t, merged, 2)
	// Three votes for the CEO pair beat two for the CTO pair.
	assert.Equal(t, "Jane Doe", merged[0].Name)
	assert.Equal(t, "Alan Ada", merged[1].Name)
}
