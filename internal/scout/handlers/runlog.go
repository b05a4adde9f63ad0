package handlers

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxRuns bounds the in-memory run history.
const maxRuns = 50

// Run is one trigger invocation. Success or failure is only observable here,
// because the trigger endpoint acknowledges before the work runs.
type Run struct {
	ID         string     `json:"id"`
	Reason     string     `json:"reason"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Outcome    string     `json:"outcome"`
	Error      string     `json:"error,omitempty"`
}

// RunLog is a bounded, newest-first record of recent runs.
type RunLog struct {
	mu   sync.Mutex
	runs []*Run
}

func NewRunLog() *RunLog {
	return &RunLog{}
}

// Start records a new in-progress run and returns its id.
func (l *RunLog) Start(reason string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	run := &Run{
		ID:        uuid.New().String(),
		Reason:    reason,
		StartedAt: time.Now().UTC(),
		Outcome:   "running",
	}
	l.runs = append([]*Run{run}, l.runs...)
	if len(l.runs) > maxRuns {
		l.runs = l.runs[:maxRuns]
	}
	return run.ID
}

// Finish marks a run completed or failed.
func (l *RunLog) Finish(id string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, run := range l.runs {
		if run.ID != id {
			continue
		}
		now := time.Now().UTC()
		run.FinishedAt = &now
		if err != nil {
			run.Outcome = "failed"
			run.Error = err.Error()
		} else {
			run.Outcome = "succeeded"
		}
		return
	}
}

// Recent returns a copy of the run history, newest first.
func (l *RunLog) Recent() []Run {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Run, 0, len(l.runs))
	for _, run := range l.runs {
		out = append(out, *run)
	}
	return out
}
