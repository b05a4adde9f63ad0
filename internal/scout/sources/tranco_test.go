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

const trancoCSV = "1,google.com\n2,youtube.com\n3,acme-ai.com\n"

func TestTrancoEnrich(t *testing.T) {
	downloads := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		downloads++
		_, _ = w.Write([]byte(trancoCSV))
	}))
	defer srv.Close()

	conn := NewTrancoConnector(srv.URL, zaptest.NewLogger(t))

	ranked := &models.Company{Name: "Acme AI"}
	require.NoError(t, conn.Enrich(context.Background(), ranked))
	require.NotNil(t, ranked.Tranco)
	assert.Equal(t, "acme-ai.com", ranked.Tranco.Domain)
	require.NotNil(t, ranked.Tranco.Rank)
	assert.Equal(t, 3, *ranked.Tranco.Rank)
	assert.True(t, conn.HasResult(ranked))

	unranked := &models.Company{Name: "Obscure Startup", Website: "https://obscure.example/about"}
	require.NoError(t, conn.Enrich(context.Background(), unranked))
	require.NotNil(t, unranked.Tranco)
	assert.Equal(t, "obscure.example", unranked.Tranco.Domain)
	assert.Nil(t, unranked.Tranco.Rank)
	assert.False(t, conn.HasResult(unranked))

	// One download serves every record.
	assert.Equal(t, 1, downloads)
}

func TestTrancoFailedDownloadRetriedNextRecord(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(trancoCSV))
	}))
	defer srv.Close()

	conn := NewTrancoConnector(srv.URL, zaptest.NewLogger(t))
	c := &models.Company{Name: "Acme AI"}

	// First attempt fails but still stamps attempted-empty.
	err := conn.Enrich(context.Background(), c)
	require.Error(t, err)
	require.NotNil(t, c.Tranco)
	assert.Nil(t, c.Tranco.Rank)

	// The failure is not cached: the next attempt downloads again.
	require.NoError(t, conn.Enrich(context.Background(), c))
	require.NotNil(t, c.Tranco.Rank)
	assert.Equal(t, 3, *c.Tranco.Rank)
	assert.Equal(t, 2, calls)
}
