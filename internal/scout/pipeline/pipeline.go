// Package pipeline owns the load -> enrich -> save cycle. Sources run
// strictly sequentially over a single in-memory collection; the only
// concurrency inside a run is the consensus merger's provider fan-out. The
// record store's version token is the sole protection against a concurrent
// run, so a save Conflict means reload and redo the whole run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gartstein/scout/internal/scout/consensus"
	"github.com/gartstein/scout/internal/scout/dataset"
	e "github.com/gartstein/scout/internal/scout/errors"
	"github.com/gartstein/scout/internal/scout/events"
	"github.com/gartstein/scout/internal/scout/models"
	"github.com/gartstein/scout/internal/scout/news"
	"github.com/gartstein/scout/internal/scout/runner"
	"github.com/gartstein/scout/internal/scout/sources"
	"github.com/gartstein/scout/internal/scout/store"
	"go.uber.org/zap"
)

// EventProducer announces applied company events. May be nil when no broker
// is configured.
type EventProducer interface {
	Produce(eventType events.EventType, company *models.Company)
}

// Pipeline wires the enrichment components to the record store.
type Pipeline struct {
	store      store.Store
	connectors []sources.Connector
	merger     *consensus.Merger
	mutator    *dataset.Mutator
	extractor  *news.Extractor
	producer   EventProducer
	runner     *runner.Runner
	incLimit   int
	logger     *zap.Logger
}

// Deps carries the pipeline's collaborators. Merger, extractor, and producer
// are optional; the corresponding stages are skipped when absent.
type Deps struct {
	Store      store.Store
	Connectors []sources.Connector
	Merger     *consensus.Merger
	Extractor  *news.Extractor
	Producer   EventProducer
	// IncrementalLimit caps records per source in the daily incremental pass.
	IncrementalLimit int
}

func New(deps Deps, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:      deps.Store,
		connectors: deps.Connectors,
		merger:     deps.Merger,
		mutator:    dataset.NewMutator(logger),
		extractor:  deps.Extractor,
		producer:   deps.Producer,
		runner:     runner.New(logger),
		incLimit:   deps.IncrementalLimit,
		logger:     logger.Named("pipeline"),
	}
}

// RunDaily performs the scheduled cycle: news-event update, leadership
// enrichment for records lacking it, then an incremental signal pass across
// every source.
func (p *Pipeline) RunDaily(ctx context.Context) error {
	return p.withSnapshot(ctx, func(ctx context.Context, snap *store.Snapshot) (string, error) {
		var parts []string

		if p.extractor != nil {
			applied, err := p.applyNews(ctx, snap)
			if err != nil {
				// News extraction failing must not block signal enrichment.
				p.logger.Warn("news update skipped", zap.Error(err))
			} else if applied > 0 {
				parts = append(parts, fmt.Sprintf("%d news events", applied))
			}
		}

		if p.merger != nil {
			updated, err := p.merger.Enrich(ctx, snap.Companies, false)
			if err != nil {
				return "", err
			}
			if updated > 0 {
				parts = append(parts, fmt.Sprintf("%d leadership updates", updated))
			}
		}

		refreshed := 0
		for _, conn := range p.connectors {
			res, err := p.runner.Run(ctx, snap.Companies, conn, runner.Options{
				Mode:  runner.ModeIncremental,
				Limit: p.incLimit,
			})
			if err != nil {
				return "", err
			}
			refreshed += res.Succeeded
		}
		if refreshed > 0 {
			parts = append(parts, fmt.Sprintf("%d signal refreshes", refreshed))
		}

		if len(parts) == 0 {
			parts = append(parts, "no changes")
		}
		return "Daily update: " + strings.Join(parts, ", "), nil
	})
}

// RunSignals refreshes the named sources (all when names is empty). Full
// mode touches every due record; incremental mode refreshes only records
// with a prior non-empty result, capped by the configured per-source limit.
func (p *Pipeline) RunSignals(ctx context.Context, names []string, mode runner.Mode, force bool) error {
	selected, err := sources.Select(p.connectors, names)
	if err != nil {
		return err
	}
	limit := 0
	if mode == runner.ModeIncremental {
		limit = p.incLimit
	}
	return p.withSnapshot(ctx, func(ctx context.Context, snap *store.Snapshot) (string, error) {
		total := runner.Result{}
		for _, conn := range selected {
			res, err := p.runner.Run(ctx, snap.Companies, conn, runner.Options{
				Force: force,
				Mode:  mode,
				Limit: limit,
			})
			if err != nil {
				return "", err
			}
			total.Succeeded += res.Succeeded
			total.Failed += res.Failed
			total.Skipped += res.Skipped
		}
		return fmt.Sprintf("Signal enrichment: %d refreshed, %d failed, %d skipped",
			total.Succeeded, total.Failed, total.Skipped), nil
	})
}

// RunLeadership runs consensus leadership enrichment.
func (p *Pipeline) RunLeadership(ctx context.Context, force bool) error {
	if p.merger == nil {
		return fmt.Errorf("%w: no leadership providers configured", e.ErrConfiguration)
	}
	return p.withSnapshot(ctx, func(ctx context.Context, snap *store.Snapshot) (string, error) {
		updated, err := p.merger.Enrich(ctx, snap.Companies, force)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Leadership enrichment: %d companies updated", updated), nil
	})
}

// RunNews extracts events from recent headlines and applies them.
func (p *Pipeline) RunNews(ctx context.Context) error {
	if p.extractor == nil {
		return fmt.Errorf("%w: no news provider configured", e.ErrConfiguration)
	}
	return p.withSnapshot(ctx, func(ctx context.Context, snap *store.Snapshot) (string, error) {
		applied, err := p.applyNews(ctx, snap)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("News update: %d events applied", applied), nil
	})
}

func (p *Pipeline) applyNews(ctx context.Context, snap *store.Snapshot) (int, error) {
	extracted, err := p.extractor.Extract(ctx, snap.Companies)
	if err != nil {
		return 0, err
	}
	applied := p.mutator.Apply(&snap.Companies, extracted)
	p.announce(applied)
	return len(applied), nil
}

func (p *Pipeline) announce(applied []dataset.Applied) {
	if p.producer == nil {
		return
	}
	for _, a := range applied {
		record := a.Record
		p.producer.Produce(eventTypeFor(a), &record)
	}
}

func eventTypeFor(a dataset.Applied) events.EventType {
	if a.Inserted {
		return events.CompanyInserted
	}
	switch a.Event.Type {
	case dataset.EventAcquisition:
		return events.CompanyAcquired
	case dataset.EventIPO:
		return events.CompanyIPO
	case dataset.EventMilestone:
		return events.CompanyMilestone
	default:
		return events.CompanyFunding
	}
}

// withSnapshot runs work between a load and a save. A Conflict on save means
// another writer won the race: the whole run is redone once against fresh
// state, then the error surfaces.
func (p *Pipeline) withSnapshot(ctx context.Context, work func(context.Context, *store.Snapshot) (string, error)) error {
	for attempt := 0; ; attempt++ {
		snap, err := p.store.Load(ctx)
		if err != nil {
			return err
		}
		message, err := work(ctx, snap)
		if err != nil {
			return err
		}
		if _, err := p.store.Save(ctx, snap, message); err != nil {
			if errors.Is(err, e.ErrConflict) && attempt == 0 {
				p.logger.Warn("save conflict, reloading and redoing run")
				continue
			}
			return err
		}
		return nil
	}
}
