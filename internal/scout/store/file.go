package store

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	e "github.com/gartstein/scout/internal/scout/errors"
	"github.com/gartstein/scout/internal/scout/models"
	"go.uber.org/zap"
)

// FileStore keeps the dataset in a single JSON document on disk. The version
// token is the sha256 of the document bytes; change history goes to a JSONL
// sidecar next to the dataset.
type FileStore struct {
	path   string
	logger *zap.Logger
}

func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.Named("file_store"),
	}
}

func (s *FileStore) Load(_ context.Context) (*Snapshot, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			// First run against an empty store.
			return &Snapshot{Companies: models.Collection{}}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", e.ErrStoreUnavailable, s.path, err)
	}
	var companies models.Collection
	if err := json.Unmarshal(raw, &companies); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", e.ErrStoreUnavailable, s.path, err)
	}
	return &Snapshot{Companies: companies, Token: contentToken(raw)}, nil
}

func (s *FileStore) Save(_ context.Context, snap *Snapshot, message string) (string, error) {
	current, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if contentToken(current) != snap.Token {
			return "", fmt.Errorf("%w: %s changed since load", e.ErrConflict, s.path)
		}
	case os.IsNotExist(err):
		if snap.Token != "" {
			return "", fmt.Errorf("%w: %s deleted since load", e.ErrConflict, s.path)
		}
	default:
		return "", fmt.Errorf("%w: stat %s: %v", e.ErrStoreUnavailable, s.path, err)
	}

	raw, err := json.MarshalIndent(snap.Companies, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode dataset: %w", err)
	}
	raw = append(raw, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return "", fmt.Errorf("rename %s: %w", tmp, err)
	}

	token := contentToken(raw)
	s.appendHistory(Change{Token: token, Message: message, Timestamp: time.Now().UTC()})
	s.logger.Info("dataset saved",
		zap.String("token", abbrev(token)),
		zap.Int("companies", len(snap.Companies)),
		zap.String("message", message),
	)
	snap.Token = token
	return token, nil
}

func (s *FileStore) History(_ context.Context, limit int) ([]Change, error) {
	f, err := os.Open(s.historyPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	var changes []Change
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var c Change
		if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
			continue
		}
		changes = append(changes, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	// Newest first, capped.
	for i, j := 0, len(changes)-1; i < j; i, j = i+1, j-1 {
		changes[i], changes[j] = changes[j], changes[i]
	}
	if limit > 0 && len(changes) > limit {
		changes = changes[:limit]
	}
	return changes, nil
}

func (s *FileStore) appendHistory(c Change) {
	f, err := os.OpenFile(s.historyPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Warn("failed to open history sidecar", zap.Error(err))
		return
	}
	defer f.Close()
	line, _ := json.Marshal(c)
	if _, err := f.Write(append(line, '\n')); err != nil {
		s.logger.Warn("failed to append history", zap.Error(err))
	}
}

func (s *FileStore) historyPath() string {
	return s.path + ".history"
}

func contentToken(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func abbrev(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
