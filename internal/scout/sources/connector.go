// Package sources implements one connector per external enrichment signal.
// Each connector owns a disjoint attribute group on the Company record,
// derives its query from the record, and converts every per-record failure
// into the attempted-empty state so one bad record never aborts a batch.
package sources

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/gartstein/scout/internal/scout/models"
)

// Connector is the generic source contract. Enrich mutates the record's
// signal group in place and always stamps the group's EnrichedAt timestamp,
// including on failure, so the staleness scheduler gates retries by TTL.
type Connector interface {
	// Name is the stable source key used in logs and CLI flags.
	Name() string
	// TTLDays is the staleness TTL for this source.
	TTLDays() int
	// Delay is the inter-call pause respecting the source's rate limit.
	// For two-step sources it also separates the sub-calls.
	Delay() time.Duration
	// LastAttempt returns the source's attempt timestamp, nil when the
	// source was never attempted for this record.
	LastAttempt(c *models.Company) *time.Time
	// HasResult reports whether the last attempt found data.
	HasResult(c *models.Company) bool
	// Enrich fetches the signal for one record. A non-nil error counts the
	// record as failed but the record is still stamped attempted-empty.
	Enrich(ctx context.Context, c *models.Company) error
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slug lowercases a company name into a package/org style identifier
// ("Acme AI" -> "acme-ai").
func slug(name string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// domainOf extracts the bare host from a website field, or falls back to
// <slug>.com when the record has no website.
func domainOf(c *models.Company) string {
	site := strings.TrimSpace(c.Website)
	if site == "" {
		return slug(c.Name) + ".com"
	}
	site = strings.TrimPrefix(site, "https://")
	site = strings.TrimPrefix(site, "http://")
	site = strings.TrimPrefix(site, "www.")
	if i := strings.IndexAny(site, "/?#"); i >= 0 {
		site = site[:i]
	}
	return site
}
