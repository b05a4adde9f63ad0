package sources

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gartstein/scout/internal/scout/models"
	"go.uber.org/zap"
)

// PatentsConnector counts granted patents naming the company as assignee via
// the PatentsView search API.
type PatentsConnector struct {
	client  *client
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

func NewPatentsConnector(logger *zap.Logger) *PatentsConnector {
	return &PatentsConnector{
		client:  newClient(0),
		baseURL: "https://search.patentsview.org/api/v1/patent/",
		logger:  logger.Named("patents"),
		now:     time.Now,
	}
}

func (p *PatentsConnector) Name() string         { return "patents" }
func (p *PatentsConnector) TTLDays() int         { return 30 }
func (p *PatentsConnector) Delay() time.Duration { return 1500 * time.Millisecond }

func (p *PatentsConnector) LastAttempt(c *models.Company) *time.Time {
	if c.Patents == nil {
		return nil
	}
	return &c.Patents.EnrichedAt
}

func (p *PatentsConnector) HasResult(c *models.Company) bool {
	return c.Patents != nil && c.Patents.PatentCount > 0
}

type patentsResponse struct {
	TotalHits int `json:"total_hits"`
	Patents   []struct {
		PatentTitle string `json:"patent_title"`
	} `json:"patents"`
}

func (p *PatentsConnector) Enrich(ctx context.Context, c *models.Company) error {
	signal := &models.PatentSignal{EnrichedAt: p.now()}
	defer func() { c.Patents = signal }()

	q := fmt.Sprintf(`{"_contains":{"assignees.assignee_organization":%q}}`, c.Name)
	f := `["patent_id","patent_title"]`
	o := `{"size":5}`
	query := fmt.Sprintf("%s?q=%s&f=%s&o=%s",
		p.baseURL, url.QueryEscape(q), url.QueryEscape(f), url.QueryEscape(o))

	var resp patentsResponse
	if err := p.client.getJSON(ctx, query, nil, &resp); err != nil {
		p.logger.Warn("search failed", zap.String("company", c.Name), zap.Error(err))
		return err
	}

	signal.PatentCount = resp.TotalHits
	for _, patent := range resp.Patents {
		if patent.PatentTitle != "" {
			signal.RecentTitles = append(signal.RecentTitles, patent.PatentTitle)
		}
	}
	return nil
}
