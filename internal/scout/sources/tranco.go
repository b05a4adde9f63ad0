package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"sync"
	"time"

	"github.com/gartstein/scout/internal/scout/models"
	"go.uber.org/zap"
)

// TrancoConnector looks up the company domain's traffic rank. The Tranco
// list ships as one large "rank,domain" CSV, so the connector downloads it
// once per process and serves every record from the in-memory index.
type TrancoConnector struct {
	client  *client
	listURL string
	logger  *zap.Logger
	now     func() time.Time

	// mu guards ranks. A nil map means the list has not been loaded yet;
	// a failed download leaves it nil so the next record retries.
	mu    sync.Mutex
	ranks map[string]int
}

func NewTrancoConnector(listURL string, logger *zap.Logger) *TrancoConnector {
	if listURL == "" {
		listURL = "https://tranco-list.eu/top-1m.csv"
	}
	return &TrancoConnector{
		client:  newClient(2 * time.Minute),
		listURL: listURL,
		logger:  logger.Named("tranco"),
		now:     time.Now,
	}
}

func (t *TrancoConnector) Name() string         { return "tranco" }
func (t *TrancoConnector) TTLDays() int         { return 30 }
func (t *TrancoConnector) Delay() time.Duration { return 0 }

func (t *TrancoConnector) LastAttempt(c *models.Company) *time.Time {
	if c.Tranco == nil {
		return nil
	}
	return &c.Tranco.EnrichedAt
}

func (t *TrancoConnector) HasResult(c *models.Company) bool {
	return c.Tranco != nil && c.Tranco.Rank != nil
}

func (t *TrancoConnector) Enrich(ctx context.Context, c *models.Company) error {
	signal := &models.TrancoSignal{EnrichedAt: t.now()}
	defer func() { c.Tranco = signal }()

	ranks, err := t.lookupTable(ctx)
	if err != nil {
		return err
	}

	domain := domainOf(c)
	signal.Domain = domain
	if rank, ok := ranks[domain]; ok {
		signal.Rank = &rank
	}
	return nil
}

// lookupTable returns the in-memory rank index, downloading the list on
// first use. The index is only cached on success, so a transient download
// failure does not poison the rest of the process lifetime.
func (t *TrancoConnector) lookupTable(ctx context.Context) (map[string]int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ranks != nil {
		return t.ranks, nil
	}

	raw, err := t.client.getText(ctx, t.listURL, nil)
	if err != nil {
		t.logger.Warn("list download failed", zap.Error(err))
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = 2
	ranks := make(map[string]int)
	for {
		fields, err := reader.Read()
		if err != nil {
			break
		}
		rank, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		ranks[fields[1]] = rank
	}
	t.ranks = ranks
	t.logger.Info("list loaded", zap.Int("domains", len(ranks)))
	return ranks, nil
}
