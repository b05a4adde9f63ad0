package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	e "github.com/gartstein/scout/internal/scout/errors"
	"github.com/gartstein/scout/internal/scout/models"
	"go.uber.org/zap"
)

// RemoteStore talks to a GitHub-Contents-style blob store: GET returns the
// base64 document plus its sha, PUT must carry the prior sha and a commit
// message, and a commits listing provides history. The sha is the version
// token; a stale sha on PUT is a Conflict discovered server-side.
type RemoteStore struct {
	contentURL string
	historyURL string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// RemoteConfig parameterizes the remote blob store endpoints.
type RemoteConfig struct {
	ContentURL string
	HistoryURL string
	Token      string
	Timeout    time.Duration
}

func NewRemoteStore(cfg *RemoteConfig, logger *zap.Logger) (*RemoteStore, error) {
	if cfg.ContentURL == "" {
		return nil, fmt.Errorf("%w: remote store content URL not set", e.ErrConfiguration)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &RemoteStore{
		contentURL: cfg.ContentURL,
		historyURL: cfg.HistoryURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("remote_store"),
	}, nil
}

type contentResponse struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

func (s *RemoteStore) Load(ctx context.Context) (*Snapshot, error) {
	var resp contentResponse
	err := s.retry(ctx, func() error {
		return s.doJSON(ctx, http.MethodGet, s.contentURL, nil, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: load remote blob: %v", e.ErrStoreUnavailable, err)
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Content)
	if err != nil {
		// Some stores return the document unencoded.
		raw = []byte(resp.Content)
	}
	var companies models.Collection
	if err := json.Unmarshal(raw, &companies); err != nil {
		return nil, fmt.Errorf("%w: decode remote blob: %v", e.ErrStoreUnavailable, err)
	}
	return &Snapshot{Companies: companies, Token: resp.SHA}, nil
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content contentResponse `json:"content"`
}

func (s *RemoteStore) Save(ctx context.Context, snap *Snapshot, message string) (string, error) {
	raw, err := json.MarshalIndent(snap.Companies, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode dataset: %w", err)
	}
	body, err := json.Marshal(putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(raw),
		SHA:     snap.Token,
	})
	if err != nil {
		return "", fmt.Errorf("encode put request: %w", err)
	}

	var resp putResponse
	err = s.retry(ctx, func() error {
		return s.doJSON(ctx, http.MethodPut, s.contentURL, bytes.NewReader(body), &resp)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("remote blob saved",
		zap.String("token", abbrev(resp.Content.SHA)),
		zap.Int("companies", len(snap.Companies)),
		zap.String("message", message),
	)
	snap.Token = resp.Content.SHA
	return resp.Content.SHA, nil
}

type commitEntry struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message   string `json:"message"`
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

func (s *RemoteStore) History(ctx context.Context, limit int) ([]Change, error) {
	if s.historyURL == "" {
		return nil, nil
	}
	url := s.historyURL
	if limit > 0 {
		url = fmt.Sprintf("%s?per_page=%d", url, limit)
	}
	var commits []commitEntry
	err := s.retry(ctx, func() error {
		return s.doJSON(ctx, http.MethodGet, url, nil, &commits)
	})
	if err != nil {
		return nil, fmt.Errorf("load remote history: %w", err)
	}
	changes := make([]Change, 0, len(commits))
	for _, c := range commits {
		changes = append(changes, Change{
			Token:     c.SHA,
			Message:   c.Commit.Message,
			Timestamp: c.Commit.Committer.Date,
		})
	}
	return changes, nil
}

func (s *RemoteStore) doJSON(ctx context.Context, method, url string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		// Stale sha. Not retryable; the caller must reload.
		return backoff.Permanent(fmt.Errorf("%w: remote token advanced", e.ErrConflict))
	case resp.StatusCode >= 500:
		return fmt.Errorf("remote store returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return backoff.Permanent(fmt.Errorf("remote store returned %d: %s", resp.StatusCode, payload))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (s *RemoteStore) retry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(op, policy)
}
