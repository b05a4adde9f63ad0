// Package consensus obtains executive-leadership lists by fanning one prompt
// out to several chat-completion providers and merging their answers by
// majority vote. Requiring independent agreement trades recall for
// precision; with a single responding provider the merge degrades to
// trusting that provider alone.
package consensus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gartstein/scout/internal/scout/llm"
	"github.com/gartstein/scout/internal/scout/models"
	"go.uber.org/zap"
)

// DefaultBatchSize companies per prompt.
const DefaultBatchSize = 20

// Merger runs leadership enrichment over a collection.
type Merger struct {
	providers []llm.Provider
	batchSize int
	logger    *zap.Logger
}

func NewMerger(providers []llm.Provider, batchSize int, logger *zap.Logger) *Merger {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Merger{
		providers: providers,
		batchSize: batchSize,
		logger:    logger.Named("consensus"),
	}
}

// proposal maps company name to the role/name pairs one provider proposed.
type proposal map[string][]models.LeadershipEntry

// Enrich fills leadership for records lacking it (all records when forced)
// and returns the number of records updated. A batch where every provider
// fails produces zero updates and processing continues.
func (m *Merger) Enrich(ctx context.Context, cc models.Collection, force bool) (int, error) {
	if len(m.providers) == 0 {
		return 0, fmt.Errorf("no leadership providers configured")
	}

	var pending []*models.Company
	for i := range cc {
		if force || len(cc[i].Leadership) == 0 {
			pending = append(pending, &cc[i])
		}
	}

	updated := 0
	for start := 0; start < len(pending); start += m.batchSize {
		end := start + m.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		updated += m.enrichBatch(ctx, pending[start:end])
	}

	m.logger.Info("leadership enrichment complete",
		zap.Int("pending", len(pending)),
		zap.Int("updated", updated),
	)
	return updated, nil
}

func (m *Merger) enrichBatch(ctx context.Context, batch []*models.Company) int {
	prompt := buildPrompt(batch)

	// The one parallel fan-out in the system: the same prompt goes to every
	// provider simultaneously. Providers are independent services with
	// independent rate limits.
	type providerResult struct {
		name     string
		parsed   proposal
		callErr  error
		parseErr error
	}
	results := make([]providerResult, len(m.providers))
	var wg sync.WaitGroup
	for i, p := range m.providers {
		wg.Add(1)
		go func(i int, p llm.Provider) {
			defer wg.Done()
			text, err := p.Complete(ctx, prompt)
			if err != nil {
				results[i] = providerResult{name: p.Name(), callErr: err}
				return
			}
			var parsed proposal
			if err := llm.Decode(text, &parsed); err != nil {
				results[i] = providerResult{name: p.Name(), parseErr: err}
				return
			}
			results[i] = providerResult{name: p.Name(), parsed: filterEntries(parsed)}
		}(i, p)
	}
	wg.Wait()

	var responders []providerResult
	for _, r := range results {
		switch {
		case r.callErr != nil:
			m.logger.Warn("provider call failed", zap.String("provider", r.name), zap.Error(r.callErr))
		case r.parseErr != nil:
			// Excluded from this batch's consensus, not retried.
			m.logger.Warn("provider response unparseable", zap.String("provider", r.name), zap.Error(r.parseErr))
		default:
			responders = append(responders, r)
		}
	}

	if len(responders) == 0 {
		if len(m.providers) == 1 {
			// Single-provider mode with the provider down: the whole batch
			// falls back to the known-CEO shortcut.
			updated := 0
			for _, c := range batch {
				if applyFallback(c) {
					updated++
				}
			}
			return updated
		}
		m.logger.Warn("all providers failed for batch", zap.Int("companies", len(batch)))
		return 0
	}

	updated := 0
	for _, c := range batch {
		var votesByProvider []([]models.LeadershipEntry)
		for _, r := range responders {
			if entries, ok := lookupCompany(r.parsed, c.Name); ok {
				votesByProvider = append(votesByProvider, entries)
			}
		}
		accepted := mergeVotes(votesByProvider, len(responders))
		switch {
		case len(accepted) > 0:
			c.Leadership = accepted
			if len(responders) == 1 {
				c.LeadershipSource = responders[0].name
			} else {
				c.LeadershipSource = models.LeadershipConsensus
			}
			updated++
		case applyFallback(c):
			updated++
		}
		// A pass that found nothing never clears a previously-successful
		// list; the prior entries stay untouched.
	}
	return updated
}

// mergeVotes groups pairs by exact role plus case-insensitive trimmed name.
// A pair needs 2 votes when 2+ providers responded, 1 otherwise. Accepted
// pairs come back sorted by descending vote count, first-seen order on ties.
func mergeVotes(votesByProvider [][]models.LeadershipEntry, responders int) []models.LeadershipEntry {
	threshold := 2
	if responders < 2 {
		threshold = 1
	}

	type tally struct {
		entry models.LeadershipEntry
		votes int
		order int
	}
	counts := make(map[string]*tally)
	order := 0
	for _, entries := range votesByProvider {
		seen := make(map[string]bool)
		for _, entry := range entries {
			key := entry.Role + "\x00" + strings.ToLower(strings.TrimSpace(entry.Name))
			if seen[key] {
				// One provider, one vote per pair.
				continue
			}
			seen[key] = true
			if t, ok := counts[key]; ok {
				t.votes++
				continue
			}
			counts[key] = &tally{entry: entry, votes: 1, order: order}
			order++
		}
	}

	var accepted []*tally
	for _, t := range counts {
		if t.votes >= threshold {
			accepted = append(accepted, t)
		}
	}
	sort.Slice(accepted, func(i, j int) bool {
		if accepted[i].votes != accepted[j].votes {
			return accepted[i].votes > accepted[j].votes
		}
		return accepted[i].order < accepted[j].order
	})

	entries := make([]models.LeadershipEntry, 0, len(accepted))
	for _, t := range accepted {
		entries = append(entries, t.entry)
	}
	return entries
}

// applyFallback installs a single-entry list from the record's known-CEO
// field. It never overwrites an existing leadership list.
func applyFallback(c *models.Company) bool {
	if len(c.Leadership) > 0 || c.CEO == "" {
		return false
	}
	c.Leadership = []models.LeadershipEntry{{Role: "CEO", Name: c.CEO}}
	c.LeadershipSource = models.LeadershipFallback
	return true
}

// filterEntries drops pairs missing either role or name.
func filterEntries(p proposal) proposal {
	for company, entries := range p {
		kept := entries[:0]
		for _, entry := range entries {
			if strings.TrimSpace(entry.Role) != "" && strings.TrimSpace(entry.Name) != "" {
				kept = append(kept, entry)
			}
		}
		p[company] = kept
	}
	return p
}

// lookupCompany finds a company's entries in a proposal, tolerating case
// differences in the key the model echoed back.
func lookupCompany(p proposal, name string) ([]models.LeadershipEntry, bool) {
	if entries, ok := p[name]; ok {
		return entries, len(entries) > 0
	}
	for key, entries := range p {
		if strings.EqualFold(key, name) {
			return entries, len(entries) > 0
		}
	}
	return nil, false
}

func buildPrompt(batch []*models.Company) string {
	var b strings.Builder
	b.WriteString("List the current executive leadership (roles such as CEO, CTO, CFO, COO, President) for each company below.\n")
	b.WriteString("Respond ONLY with a JSON object mapping each company name exactly as given to an array of {\"role\": ..., \"name\": ...} objects.\n")
	b.WriteString("Use an empty array for companies you are not confident about. No prose, no markdown.\n\nCompanies:\n")
	for _, c := range batch {
		b.WriteString("- ")
		b.WriteString(c.Name)
		if c.CEO != "" {
			fmt.Fprintf(&b, " (known CEO: %s)", c.CEO)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
