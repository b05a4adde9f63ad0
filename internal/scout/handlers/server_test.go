package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeTrigger struct {
	mu    sync.Mutex
	calls int
	err   error
	done  chan struct{}
}

func (f *fakeTrigger) RunDaily(_ context.Context) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.done != nil {
		defer close(f.done)
	}
	return f.err
}

func (f *fakeTrigger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestHealthzIsOpen(t *testing.T) {
	s := NewServer(0, "sekrit", 6, &fakeTrigger{}, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTriggerRequiresSecret(t *testing.T) {
	s := NewServer(0, "sekrit", 6, &fakeTrigger{}, zaptest.NewLogger(t))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic sekrit", want: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "correct secret", header: "Bearer sekrit", want: http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/trigger", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestEmptySecretDisablesGuard(t *testing.T) {
	s := NewServer(0, "", 6, &fakeTrigger{}, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/runs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTriggerAcknowledgesAndRunsAsync(t *testing.T) {
	trigger := &fakeTrigger{done: make(chan struct{})}
	s := NewServer(0, "", 6, trigger, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/trigger", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "accepted", body["status"])
	assert.NotEmpty(t, body["run"])

	select {
	case <-trigger.done:
	case <-time.After(2 * time.Second):
		t.Fatal("run never executed")
	}
	assert.Equal(t, 1, trigger.callCount())
}

func TestRunsEndpointShowsOutcome(t *testing.T) {
	trigger := &fakeTrigger{err: errors.New("pipeline blew up"), done: make(chan struct{})}
	s := NewServer(0, "", 6, trigger, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/trigger", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	<-trigger.done

	// Finish runs right after done closes; poll briefly for the outcome.
	deadline := time.Now().Add(2 * time.Second)
	var runs []Run
	for time.Now().Before(deadline) {
		rec = httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/runs", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
		if len(runs) == 1 && runs[0].Outcome != "running" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Outcome)
	assert.Equal(t, "pipeline blew up", runs[0].Error)
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestRunLogBoundedNewestFirst(t *testing.T) {
	l := NewRunLog()
	var last string
	for i := 0; i < maxRuns+10; i++ {
		last = l.Start("scheduled")
	}
	runs := l.Recent()
	require.Len(t, runs, maxRuns)
	assert.Equal(t, last, runs[0].ID)
}

func TestUntilNext(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Duration
	}{
		{
			name: "later today",
			now:  time.Date(2026, 8, 20, 4, 0, 0, 0, time.UTC),
			hour: 6,
			want: 2 * time.Hour,
		},
		{
			name: "already passed",
			now:  time.Date(2026, 8, 20, 7, 30, 0, 0, time.UTC),
			hour: 6,
			want: 22*time.Hour + 30*time.Minute,
		},
		{
			name: "exactly now rolls to tomorrow",
			now:  time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC),
			hour: 6,
			want: 24 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, untilNext(tt.now, tt.hour))
		})
	}
}
