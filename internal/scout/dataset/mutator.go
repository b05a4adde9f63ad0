// Package dataset applies discrete company events (funding rounds,
// acquisitions, IPOs, milestones) to the collection with insert-or-update
// semantics keyed by normalized name. Confidence filtering happens upstream
// in the news extractor; the only confidence check here is the insert gate.
package dataset

import (
	"fmt"
	"time"

	"github.com/gartstein/scout/internal/scout/models"
	"go.uber.org/zap"
)

// EventType classifies an extracted company event.
type EventType string

const (
	EventFunding     EventType = "funding"
	EventAcquisition EventType = "acquisition"
	EventIPO         EventType = "ipo"
	EventMilestone   EventType = "milestone"
)

// EventDetails carries the type-specific payload of an event.
type EventDetails struct {
	Amount      string `json:"amount,omitempty"`
	Round       string `json:"round,omitempty"`
	Investors   string `json:"investors,omitempty"`
	Valuation   string `json:"valuation,omitempty"`
	Acquirer    string `json:"acquirer,omitempty"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
}

// Event is one extracted company event. Confidence is the extractor's
// self-reported estimate (high/medium/low) and gates only inserts.
type Event struct {
	Type       EventType    `json:"type"`
	Company    string       `json:"company"`
	Details    EventDetails `json:"details"`
	Confidence string       `json:"confidence"`
	Date       string       `json:"date"`
}

// Applied describes one event that changed the dataset, with the record
// state after the change. Record is a copy: pointers into the collection do
// not survive the final re-sort.
type Applied struct {
	Event    Event
	Record   models.Company
	Inserted bool
}

// Mutator applies events to a collection.
type Mutator struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewMutator(logger *zap.Logger) *Mutator {
	return &Mutator{
		logger: logger.Named("mutator"),
		now:    time.Now,
	}
}

// Apply runs every event against the collection, then re-sorts it
// case-insensitively by name and reassigns ids 1..N. The re-sort invalidates
// any externally cached id.
func (m *Mutator) Apply(cc *models.Collection, events []Event) []Applied {
	var applied []Applied
	for _, ev := range events {
		if a, ok := m.applyOne(cc, ev); ok {
			applied = append(applied, a)
		}
	}
	if len(applied) > 0 {
		cc.Resort()
	}
	return applied
}

func (m *Mutator) applyOne(cc *models.Collection, ev Event) (Applied, bool) {
	record := cc.FindByName(ev.Company)

	if record == nil {
		// Only high-confidence funding events may create records. An
		// acquisition, ipo, or milestone for an untracked company is
		// discarded outright.
		if ev.Type != EventFunding || ev.Confidence != "high" {
			m.logger.Debug("event discarded, no matching record",
				zap.String("type", string(ev.Type)),
				zap.String("company", ev.Company),
			)
			return Applied{}, false
		}
		inserted := m.insert(cc, ev)
		return Applied{Event: ev, Record: inserted, Inserted: true}, true
	}

	switch ev.Type {
	case EventFunding:
		m.applyFunding(record, ev)
	case EventAcquisition:
		m.applyAcquisition(record, ev)
	case EventIPO:
		m.applyIPO(record, ev)
	case EventMilestone:
		m.applyMilestone(record, ev)
	default:
		m.logger.Warn("unknown event type", zap.String("type", string(ev.Type)))
		return Applied{}, false
	}
	record.LastAutoUpdate = m.eventDate(ev)
	return Applied{Event: ev, Record: *record}, true
}

func (m *Mutator) applyFunding(c *models.Company, ev Event) {
	d := ev.Details
	if d.Amount != "" {
		c.Funding = d.Amount
		c.FundingValue = ParseFundingValue(d.Amount)
	}
	if d.Valuation != "" {
		c.Valuation = d.Valuation
	}
	if d.Round != "" {
		c.LastRound = d.Round
	}
	if d.Investors != "" {
		c.Investors = d.Investors
	}
	c.FundingRounds = append(c.FundingRounds, models.FundingRound{
		Stage:     d.Round,
		Amount:    d.Amount,
		Date:      m.eventDate(ev),
		Investors: d.Investors,
	})
}

func (m *Mutator) applyAcquisition(c *models.Company, ev Event) {
	d := ev.Details
	c.Status = "Acquired"
	if d.Value != "" {
		c.Funding = fmt.Sprintf("Acquired by %s (%s)", d.Acquirer, d.Value)
		c.Valuation = d.Value
	} else {
		c.Funding = fmt.Sprintf("Acquired by %s", d.Acquirer)
		c.Valuation = "Acquired"
	}
	c.LastRound = "Acquisition"
	c.Insight = fmt.Sprintf("Acquired by %s on %s.", d.Acquirer, m.eventDate(ev))
}

func (m *Mutator) applyIPO(c *models.Company, ev Event) {
	d := ev.Details
	if d.Amount != "" {
		c.Funding = fmt.Sprintf("IPO (%s)", d.Amount)
		c.Valuation = fmt.Sprintf("Public (%s)", d.Amount)
	} else {
		c.Funding = "IPO"
		c.Valuation = "Public"
	}
	c.LastRound = "IPO"
	c.Insight = fmt.Sprintf("Went public on %s.", m.eventDate(ev))
}

func (m *Mutator) applyMilestone(c *models.Company, ev Event) {
	if ev.Details.Description != "" {
		c.Insight = ev.Details.Description
	}
}

func (m *Mutator) insert(cc *models.Collection, ev Event) models.Company {
	d := ev.Details
	record := models.Company{
		ID:           cc.MaxID() + 1,
		Name:         ev.Company,
		Category:     models.CategoryOther,
		Funding:      d.Amount,
		FundingValue: ParseFundingValue(d.Amount),
		Valuation:    d.Valuation,
		LastRound:    d.Round,
		Investors:    d.Investors,
		LastAutoUpdate: m.eventDate(ev),
	}
	if d.Amount != "" {
		record.FundingRounds = []models.FundingRound{{
			Stage:     d.Round,
			Amount:    d.Amount,
			Date:      m.eventDate(ev),
			Investors: d.Investors,
		}}
	}
	*cc = append(*cc, record)
	m.logger.Info("new company inserted from funding event",
		zap.String("company", ev.Company),
		zap.String("amount", d.Amount),
	)
	return record
}

func (m *Mutator) eventDate(ev Event) string {
	if ev.Date != "" {
		return ev.Date
	}
	return m.now().UTC().Format("2006-01-02")
}
