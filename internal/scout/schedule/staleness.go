// Package schedule decides, per record per source, whether an enrichment
// refresh is due. Staleness is evaluated independently per source from the
// source's own last-attempt timestamp.
package schedule

import (
	"time"

	"github.com/gartstein/scout/internal/scout/models"
)

// absentTTLFactor stretches the recheck interval for records a source has
// already examined and found empty, so known-absent entries are not
// re-queried as eagerly as never-attempted ones.
const absentTTLFactor = 3

// Probe is the part of a source connector the scheduler needs.
type Probe interface {
	TTLDays() int
	LastAttempt(c *models.Company) *time.Time
	HasResult(c *models.Company) bool
}

// IsDue reports whether a refresh is due given the last attempt timestamp
// and a TTL in days. force always wins; an absent timestamp means the source
// was never attempted and is always due.
func IsDue(last *time.Time, ttlDays int, force bool, now time.Time) bool {
	if force {
		return true
	}
	if last == nil {
		return true
	}
	return now.Sub(*last) > time.Duration(ttlDays)*24*time.Hour
}

// DueForSource applies IsDue with the source's TTL, stretched for records
// the source previously resolved to known-absent.
func DueForSource(c *models.Company, p Probe, force bool, now time.Time) bool {
	last := p.LastAttempt(c)
	ttl := p.TTLDays()
	if last != nil && !p.HasResult(c) {
		ttl *= absentTTLFactor
	}
	return IsDue(last, ttl, force, now)
}
