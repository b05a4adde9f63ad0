// Package runner sequences connector calls across the collection with
// per-source inter-call delays. Calls are strictly sequential within one
// source; per-record failures are counted and swallowed, never propagated.
package runner

import (
	"context"
	"fmt"
	"time"

	e "github.com/gartstein/scout/internal/scout/errors"
	"github.com/gartstein/scout/internal/scout/models"
	"github.com/gartstein/scout/internal/scout/schedule"
	"github.com/gartstein/scout/internal/scout/sources"
	"go.uber.org/zap"
)

// Mode selects which records a run touches.
type Mode int

const (
	// ModeFull refreshes every record that is due.
	ModeFull Mode = iota
	// ModeIncremental refreshes only records with a prior non-empty result,
	// capped at Options.Limit per invocation.
	ModeIncremental
)

// ParseMode maps a CLI mode name to a Mode. An empty name is full mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "full", "":
		return ModeFull, nil
	case "incremental":
		return ModeIncremental, nil
	}
	return ModeFull, fmt.Errorf("%w: unknown mode %q", e.ErrConfiguration, s)
}

// Options tune one batch run.
type Options struct {
	Force bool
	Mode  Mode
	// Limit caps processed records; zero means unlimited.
	Limit int
}

// Result counts per-record outcomes of one batch.
type Result struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// Runner executes one connector over the collection.
type Runner struct {
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
}

func New(logger *zap.Logger) *Runner {
	return &Runner{
		logger: logger.Named("runner"),
		sleep:  sleepCtx,
		now:    time.Now,
	}
}

// Run processes the collection in order. It stops early only on context
// cancellation; every other failure is isolated to its record.
func (r *Runner) Run(ctx context.Context, cc models.Collection, conn sources.Connector, opts Options) (Result, error) {
	var res Result
	processed := 0

	for i := range cc {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		c := &cc[i]

		if opts.Mode == ModeIncremental && !(conn.LastAttempt(c) != nil && conn.HasResult(c)) {
			res.Skipped++
			continue
		}
		if opts.Limit > 0 && processed >= opts.Limit {
			res.Skipped++
			continue
		}
		if !schedule.DueForSource(c, conn, opts.Force, r.now()) {
			res.Skipped++
			continue
		}

		if processed > 0 {
			if err := r.sleep(ctx, conn.Delay()); err != nil {
				return res, err
			}
		}
		processed++

		if err := conn.Enrich(ctx, c); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			// The connector already stamped the record attempted-empty, so
			// the TTL gates the next retry.
			res.Failed++
			r.logger.Warn("record enrichment failed",
				zap.String("source", conn.Name()),
				zap.String("company", c.Name),
				zap.Error(err),
			)
			continue
		}
		res.Succeeded++
	}

	r.logger.Info("batch complete",
		zap.String("source", conn.Name()),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
