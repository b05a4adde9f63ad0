package sources

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gartstein/scout/internal/scout/models"
	"go.uber.org/zap"
)

// HNConnector measures Hacker News discussion volume via the Algolia
// search API.
type HNConnector struct {
	client  *client
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

func NewHNConnector(logger *zap.Logger) *HNConnector {
	return &HNConnector{
		client:  newClient(0),
		baseURL: "https://hn.algolia.com/api/v1",
		logger:  logger.Named("hn"),
		now:     time.Now,
	}
}

func (h *HNConnector) Name() string         { return "hn" }
func (h *HNConnector) TTLDays() int         { return 7 }
func (h *HNConnector) Delay() time.Duration { return 500 * time.Millisecond }

func (h *HNConnector) LastAttempt(c *models.Company) *time.Time {
	if c.HN == nil {
		return nil
	}
	return &c.HN.EnrichedAt
}

func (h *HNConnector) HasResult(c *models.Company) bool {
	return c.HN != nil && c.HN.StoryCount > 0
}

type hnSearchResponse struct {
	NbHits int `json:"nbHits"`
	Hits   []struct {
		Title     string `json:"title"`
		URL       string `json:"url"`
		Points    int    `json:"points"`
		CreatedAt string `json:"created_at"`
	} `json:"hits"`
}

func (h *HNConnector) Enrich(ctx context.Context, c *models.Company) error {
	signal := &models.HNSignal{EnrichedAt: h.now()}
	defer func() { c.HN = signal }()

	query := fmt.Sprintf("%s/search?query=%s&tags=story&hitsPerPage=5",
		h.baseURL, url.QueryEscape(quoted(c.Name)))
	var resp hnSearchResponse
	if err := h.client.getJSON(ctx, query, nil, &resp); err != nil {
		h.logger.Warn("search failed", zap.String("company", c.Name), zap.Error(err))
		return err
	}

	signal.StoryCount = resp.NbHits
	for _, hit := range resp.Hits {
		if hit.Title == "" {
			continue
		}
		signal.TopStories = append(signal.TopStories, models.HNStory{
			Title:     hit.Title,
			URL:       hit.URL,
			Points:    hit.Points,
			CreatedAt: hit.CreatedAt,
		})
	}
	return nil
}

func quoted(name string) string {
	return `"` + name + `"`
}
