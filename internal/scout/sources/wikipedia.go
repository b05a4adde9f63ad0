package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gartstein/scout/internal/scout/models"
	"go.uber.org/zap"
)

// WikipediaConnector resolves a company to an article via opensearch, then
// sums the article's pageviews for the trailing 30 days via the Wikimedia
// REST metrics API. A resolved title with a failed metrics fetch is recorded
// as partial success, not total failure.
type WikipediaConnector struct {
	client       *client
	searchURL    string
	pageviewsURL string
	logger       *zap.Logger
	now          func() time.Time
}

func NewWikipediaConnector(logger *zap.Logger) *WikipediaConnector {
	return &WikipediaConnector{
		client:       newClient(0),
		searchURL:    "https://en.wikipedia.org/w/api.php",
		pageviewsURL: "https://wikimedia.org/api/rest_v1/metrics/pageviews/per-article/en.wikipedia/all-access/all-agents",
		logger:       logger.Named("wikipedia"),
		now:          time.Now,
	}
}

func (w *WikipediaConnector) Name() string         { return "wikipedia" }
func (w *WikipediaConnector) TTLDays() int         { return 14 }
func (w *WikipediaConnector) Delay() time.Duration { return time.Second }

func (w *WikipediaConnector) LastAttempt(c *models.Company) *time.Time {
	if c.Wikipedia == nil {
		return nil
	}
	return &c.Wikipedia.EnrichedAt
}

func (w *WikipediaConnector) HasResult(c *models.Company) bool {
	return c.Wikipedia != nil && c.Wikipedia.Title != ""
}

func (w *WikipediaConnector) Enrich(ctx context.Context, c *models.Company) error {
	signal := &models.WikipediaSignal{EnrichedAt: w.now()}
	defer func() { c.Wikipedia = signal }()

	title, err := w.resolve(ctx, c.Name)
	if err != nil {
		w.logger.Warn("resolve failed", zap.String("company", c.Name), zap.Error(err))
		return err
	}
	if title == "" {
		return nil
	}
	signal.Title = title

	if err := sleep(ctx, w.Delay()); err != nil {
		return err
	}

	views, err := w.pageviews(ctx, title)
	if err != nil {
		// Entity resolved, metric unavailable.
		w.logger.Warn("pageviews failed", zap.String("title", title), zap.Error(err))
		return nil
	}
	signal.PageViews30d = &views
	return nil
}

// resolve returns the best-matching article title, or "" when none exists.
func (w *WikipediaConnector) resolve(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("%s?action=opensearch&search=%s&limit=1&namespace=0&format=json",
		w.searchURL, url.QueryEscape(name))

	// opensearch responds with a positional array: [term, titles, descriptions, links].
	var parts []json.RawMessage
	if err := w.client.getJSON(ctx, query, nil, &parts); err != nil {
		return "", err
	}
	if len(parts) < 2 {
		return "", nil
	}
	var titles []string
	if err := json.Unmarshal(parts[1], &titles); err != nil {
		return "", nil
	}
	if len(titles) == 0 {
		return "", nil
	}
	return titles[0], nil
}

type pageviewsResponse struct {
	Items []struct {
		Views int64 `json:"views"`
	} `json:"items"`
}

func (w *WikipediaConnector) pageviews(ctx context.Context, title string) (int64, error) {
	end := w.now().UTC().AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -30)
	article := url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	query := fmt.Sprintf("%s/%s/daily/%s/%s",
		w.pageviewsURL, article, start.Format("20060102"), end.Format("20060102"))

	var resp pageviewsResponse
	if err := w.client.getJSON(ctx, query, nil, &resp); err != nil {
		return 0, err
	}
	var total int64
	for _, item := range resp.Items {
		total += item.Views
	}
	return total, nil
}
