package sources

import (
	"context"
	"strings"
	"time"

	"github.com/gartstein/scout/internal/scout/models"
	"go.uber.org/zap"
)

// ProductHuntConnector queries the Product Hunt GraphQL API for launch posts
// matching the company name. The API is token-gated: without a token the
// connector degrades to attempted-empty instead of failing.
type ProductHuntConnector struct {
	client  *client
	baseURL string
	token   string
	logger  *zap.Logger
	now     func() time.Time
}

func NewProductHuntConnector(token string, logger *zap.Logger) *ProductHuntConnector {
	return &ProductHuntConnector{
		client:  newClient(0),
		baseURL: "https://api.producthunt.com/v2/api/graphql",
		token:   token,
		logger:  logger.Named("producthunt"),
		now:     time.Now,
	}
}

func (p *ProductHuntConnector) Name() string         { return "producthunt" }
func (p *ProductHuntConnector) TTLDays() int         { return 14 }
func (p *ProductHuntConnector) Delay() time.Duration { return 2 * time.Second }

func (p *ProductHuntConnector) LastAttempt(c *models.Company) *time.Time {
	if c.ProductHunt == nil {
		return nil
	}
	return &c.ProductHunt.EnrichedAt
}

func (p *ProductHuntConnector) HasResult(c *models.Company) bool {
	return c.ProductHunt != nil && c.ProductHunt.PostCount > 0
}

type phRequest struct {
	Query string `json:"query"`
}

type phResponse struct {
	Data struct {
		Posts struct {
			Edges []struct {
				Node struct {
					Name       string `json:"name"`
					VotesCount int    `json:"votesCount"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"posts"`
	} `json:"data"`
}

// The v2 API has no free-text post search, so we page the top recent posts
// and match on the slugged name client-side.
const phQuery = `query {
  posts(first: 50, order: VOTES) {
    edges { node { name votesCount } }
  }
}`

func (p *ProductHuntConnector) Enrich(ctx context.Context, c *models.Company) error {
	signal := &models.ProductHuntSignal{EnrichedAt: p.now()}
	defer func() { c.ProductHunt = signal }()

	if p.token == "" {
		// No credential: record the attempt so the TTL gates rechecks.
		return nil
	}

	headers := map[string]string{"Authorization": "Bearer " + p.token}
	req := phRequest{Query: phQuery}
	var resp phResponse
	if err := p.client.postJSON(ctx, p.baseURL, headers, req, &resp); err != nil {
		p.logger.Warn("query failed", zap.String("company", c.Name), zap.Error(err))
		return err
	}

	for _, edge := range resp.Data.Posts.Edges {
		if !matchesName(edge.Node.Name, c.Name) {
			continue
		}
		signal.PostCount++
		signal.Votes += edge.Node.VotesCount
		if signal.TopPost == "" {
			signal.TopPost = edge.Node.Name
		}
	}
	return nil
}

func matchesName(post, company string) bool {
	ps, cs := slug(post), slug(company)
	return ps == cs || strings.Contains(ps, cs)
}
