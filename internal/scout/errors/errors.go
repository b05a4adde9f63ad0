package errors

import (
	"fmt"
)

var (
	// ErrStoreUnavailable means neither the local cache nor the remote blob
	// could be read.
	ErrStoreUnavailable = fmt.Errorf("store unavailable")
	// ErrConflict means the store's version token advanced since load; the
	// caller must reload and rerun.
	ErrConflict = fmt.Errorf("version conflict")
	// ErrConfiguration means a required credential or setting is missing.
	// It aborts a run rather than degrading.
	ErrConfiguration = fmt.Errorf("configuration error")
	// ErrNoResult is the per-record sentinel for a source that found nothing.
	ErrNoResult = fmt.Errorf("no result")
	// ErrParse means a provider's response text did not contain valid JSON.
	ErrParse = fmt.Errorf("parse failure")
)
