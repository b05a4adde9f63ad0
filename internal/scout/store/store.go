// Package store persists the company dataset. Every backend exposes the same
// contract: Load returns the full collection plus an opaque version token,
// Save writes the full collection guarded by that token (optimistic
// concurrency, no merge), and History lists past changes newest-first.
package store

import (
	"context"
	"time"

	"github.com/gartstein/scout/internal/scout/models"
)

// Snapshot is the dataset as of one Load, with the version token that must
// accompany the next Save.
type Snapshot struct {
	Companies models.Collection
	Token     string
}

// Change is one recorded save, for audit/history retrieval.
type Change struct {
	Token     string    `json:"token"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the record store adapter contract.
type Store interface {
	// Load returns the current dataset. Fails with ErrStoreUnavailable when
	// the backing document cannot be read.
	Load(ctx context.Context) (*Snapshot, error)
	// Save writes the full dataset with a human-readable change summary and
	// returns the new version token. Fails with ErrConflict when the store's
	// token advanced since the snapshot was loaded.
	Save(ctx context.Context, snap *Snapshot, message string) (string, error)
	// History returns up to limit past changes, newest first.
	History(ctx context.Context, limit int) ([]Change, error)
}
