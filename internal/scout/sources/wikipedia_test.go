package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gartstein/scout/internal/scout/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newWikipediaTestConnector(t *testing.T, search, pageviews http.HandlerFunc) *WikipediaConnector {
	t.Helper()
	searchSrv := httptest.NewServer(search)
	t.Cleanup(searchSrv.Close)

	conn := NewWikipediaConnector(zaptest.NewLogger(t))
	conn.searchURL = searchSrv.URL
	if pageviews != nil {
		viewsSrv := httptest.NewServer(pageviews)
		t.Cleanup(viewsSrv.Close)
		conn.pageviewsURL = viewsSrv.URL
	}
	return conn
}

func TestWikipediaEnrich(t *testing.T) {
	search := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Acme AI", r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(`["Acme AI", ["Acme Corporation"], [""], ["https://en.wikipedia.org/wiki/Acme_Corporation"]]`))
	}
	pageviews := func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "Acme_Corporation")
		_, _ = w.Write([]byte(`{"items": [{"views": 100}, {"views": 250}]}`))
	}
	conn := newWikipediaTestConnector(t, search, pageviews)

	c := &models.Company{Name: "Acme AI"}
	require.NoError(t, conn.Enrich(context.Background(), c))

	require.NotNil(t, c.Wikipedia)
	assert.Equal(t, "Acme Corporation", c.Wikipedia.Title)
	require.NotNil(t, c.Wikipedia.PageViews30d)
	assert.Equal(t, int64(350), *c.Wikipedia.PageViews30d)
	assert.True(t, conn.HasResult(c))
}

func TestWikipediaNoArticle(t *testing.T) {
	search := func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`["Nonexistent Co", [], [], []]`))
	}
	conn := newWikipediaTestConnector(t, search, nil)

	c := &models.Company{Name: "Nonexistent Co"}
	require.NoError(t, conn.Enrich(context.Background(), c))

	// No match is attempted-empty, not an error.
	require.NotNil(t, c.Wikipedia)
	assert.Empty(t, c.Wikipedia.Title)
	assert.Nil(t, c.Wikipedia.PageViews30d)
	assert.False(t, conn.HasResult(c))
	assert.NotNil(t, conn.LastAttempt(c))
}

func TestWikipediaMetricsFailureIsPartialSuccess(t *testing.T) {
	search := func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`["Acme AI", ["Acme Corporation"], [""], [""]]`))
	}
	pageviews := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}
	conn := newWikipediaTestConnector(t, search, pageviews)

	c := &models.Company{Name: "Acme AI"}
	require.NoError(t, conn.Enrich(context.Background(), c))

	// Resolved title survives a failed metric fetch.
	require.NotNil(t, c.Wikipedia)
	assert.Equal(t, "Acme Corporation", c.Wikipedia.Title)
	assert.Nil(t, c.Wikipedia.PageViews30d)
	assert.True(t, conn.HasResult(c))
}

func TestWikipediaResolveFailure(t *testing.T) {
	search := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}
	conn := newWikipediaTestConnector(t, search, nil)

	c := &models.Company{Name: "Acme AI"}
	err := conn.Enrich(context.Background(), c)
	require.Error(t, err)
	require.NotNil(t, c.Wikipedia)
	assert.Empty(t, c.Wikipedia.Title)
}
