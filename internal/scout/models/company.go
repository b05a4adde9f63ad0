// Package models defines the core domain models for the company directory:
// the Company record, its leadership and funding-round sub-entities, and the
// Collection helpers that keep the dataset sorted and renumbered.
package models

import (
	"sort"
	"strings"
)

// Category represents the sector a company is filed under.
type Category string

const (
	CategoryAI         Category = "AI"
	CategoryFintech    Category = "FINTECH"
	CategoryHealth     Category = "HEALTH"
	CategoryEnterprise Category = "ENTERPRISE"
	CategoryConsumer   Category = "CONSUMER"
	CategoryClimate    Category = "CLIMATE"
	// CategoryOther is the fallback used when an inserted record's sector
	// cannot be determined from the event that created it.
	CategoryOther Category = "OTHER"
)

// Leadership provenance tags. A provider name is also a valid source.
const (
	LeadershipConsensus = "consensus"
	LeadershipFallback  = "fallback"
)

// LeadershipEntry is one executive role/name pair.
type LeadershipEntry struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

// FundingRound is one entry in a company's append-only funding history.
type FundingRound struct {
	Stage     string `json:"stage"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Investors string `json:"investors"`
}

// Company is the central directory record. The ID is a position token: after
// any insert the collection is re-sorted by name and ids reassigned 1..N, so
// callers must not persist ids across mutating runs.
type Company struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Category    Category `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Rating      int      `json:"rating,omitempty"`
	Website     string   `json:"website,omitempty"`

	Funding      string         `json:"funding,omitempty"`
	FundingValue float64        `json:"fundingValue,omitempty"`
	Valuation    string         `json:"valuation,omitempty"`
	LastRound    string         `json:"lastRound,omitempty"`
	Investors    string         `json:"investors,omitempty"`
	FundingRounds []FundingRound `json:"fundingRounds,omitempty"`

	CEO    string `json:"ceo,omitempty"`
	Status string `json:"status,omitempty"`
	Insight string `json:"insight,omitempty"`

	Leadership       []LeadershipEntry `json:"leadership,omitempty"`
	LeadershipSource string            `json:"leadershipSource,omitempty"`

	LastAutoUpdate string `json:"lastAutoUpdate,omitempty"`

	// Per-source enrichment groups. A nil group means the source was never
	// attempted; a non-nil group with an empty payload means it was attempted
	// and found nothing. Each group carries its own EnrichedAt timestamp.
	HN          *HNSignal          `json:"hn,omitempty"`
	Wikipedia   *WikipediaSignal   `json:"wikipedia,omitempty"`
	Patents     *PatentSignal      `json:"patents,omitempty"`
	ProductHunt *ProductHuntSignal `json:"productHunt,omitempty"`
	OpenAlex    *OpenAlexSignal    `json:"openAlex,omitempty"`
	Tranco      *TrancoSignal      `json:"tranco,omitempty"`
	AppStore    *AppStoreSignal    `json:"appStore,omitempty"`
	Packages    *PackageSignal     `json:"packages,omitempty"`
	GitHub      *GitHubSignal      `json:"github,omitempty"`
	SEC         *SECSignal         `json:"sec,omitempty"`
	News        *NewsSignal        `json:"news,omitempty"`
}

// Collection is the full ordered dataset for one run. It is owned by the run
// that loaded it; components mutate it in place, sequentially.
type Collection []Company

// FindByName returns a pointer to the record whose name matches
// case-insensitively, or nil. Pointers are invalidated by Resort.
func (cc Collection) FindByName(name string) *Company {
	for i := range cc {
		if strings.EqualFold(cc[i].Name, name) {
			return &cc[i]
		}
	}
	return nil
}

// MaxID returns the highest id currently in the collection.
func (cc Collection) MaxID() int {
	max := 0
	for i := range cc {
		if cc[i].ID > max {
			max = cc[i].ID
		}
	}
	return max
}

// Resort orders the collection case-insensitively by name and reassigns every
// id to its 1-based position.
func (cc Collection) Resort() {
	sort.SliceStable(cc, func(i, j int) bool {
		return strings.ToLower(cc[i].Name) < strings.ToLower(cc[j].Name)
	})
	for i := range cc {
		cc[i].ID = i + 1
	}
}
