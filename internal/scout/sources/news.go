package sources

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gartstein/scout/internal/scout/models"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// NewsConnector pulls recent Google News RSS headlines mentioning the
// company. News goes stale fast, so the TTL is short.
type NewsConnector struct {
	client  *client
	baseURL string
	parser  *gofeed.Parser
	logger  *zap.Logger
	now     func() time.Time
}

func NewNewsConnector(logger *zap.Logger) *NewsConnector {
	return &NewsConnector{
		client:  newClient(0),
		baseURL: "https://news.google.com/rss/search",
		parser:  gofeed.NewParser(),
		logger:  logger.Named("news"),
		now:     time.Now,
	}
}

func (n *NewsConnector) Name() string         { return "news" }
func (n *NewsConnector) TTLDays() int         { return 3 }
func (n *NewsConnector) Delay() time.Duration { return time.Second }

func (n *NewsConnector) LastAttempt(c *models.Company) *time.Time {
	if c.News == nil {
		return nil
	}
	return &c.News.EnrichedAt
}

func (n *NewsConnector) HasResult(c *models.Company) bool {
	return c.News != nil && len(c.News.Headlines) > 0
}

func (n *NewsConnector) Enrich(ctx context.Context, c *models.Company) error {
	signal := &models.NewsSignal{EnrichedAt: n.now()}
	defer func() { c.News = signal }()

	query := fmt.Sprintf("%s?q=%s&hl=en-US&gl=US&ceid=US:en",
		n.baseURL, url.QueryEscape(quoted(c.Name)))
	raw, err := n.client.getText(ctx, query, map[string]string{"Accept": "application/rss+xml"})
	if err != nil {
		n.logger.Warn("feed fetch failed", zap.String("company", c.Name), zap.Error(err))
		return err
	}

	feed, err := n.parser.ParseString(string(raw))
	if err != nil {
		// Malformed XML is the same as no news.
		n.logger.Warn("feed parse failed", zap.String("company", c.Name), zap.Error(err))
		return nil
	}

	for _, item := range feed.Items {
		if item.Title == "" {
			continue
		}
		signal.Headlines = append(signal.Headlines, models.Headline{
			Title:     item.Title,
			Link:      item.Link,
			Published: item.Published,
		})
		if len(signal.Headlines) == 5 {
			break
		}
	}
	return nil
}
