package sources

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gartstein/scout/internal/scout/models"
	"go.uber.org/zap"
)

// OpenAlexConnector resolves a company to an OpenAlex institution, then
// counts its published works. Two dependent calls per record; the inter-call
// delay also applies between the sub-calls.
type OpenAlexConnector struct {
	client  *client
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

func NewOpenAlexConnector(logger *zap.Logger) *OpenAlexConnector {
	return &OpenAlexConnector{
		client:  newClient(0),
		baseURL: "https://api.openalex.org",
		logger:  logger.Named("openalex"),
		now:     time.Now,
	}
}

func (o *OpenAlexConnector) Name() string         { return "openalex" }
func (o *OpenAlexConnector) TTLDays() int         { return 30 }
func (o *OpenAlexConnector) Delay() time.Duration { return 300 * time.Millisecond }

func (o *OpenAlexConnector) LastAttempt(c *models.Company) *time.Time {
	if c.OpenAlex == nil {
		return nil
	}
	return &c.OpenAlex.EnrichedAt
}

func (o *OpenAlexConnector) HasResult(c *models.Company) bool {
	return c.OpenAlex != nil && c.OpenAlex.InstitutionID != ""
}

type institutionsResponse struct {
	Results []struct {
		ID           string `json:"id"`
		CitedByCount int    `json:"cited_by_count"`
	} `json:"results"`
}

type worksResponse struct {
	Meta struct {
		Count int `json:"count"`
	} `json:"meta"`
}

func (o *OpenAlexConnector) Enrich(ctx context.Context, c *models.Company) error {
	signal := &models.OpenAlexSignal{EnrichedAt: o.now()}
	defer func() { c.OpenAlex = signal }()

	query := fmt.Sprintf("%s/institutions?search=%s&per-page=1",
		o.baseURL, url.QueryEscape(c.Name))
	var inst institutionsResponse
	if err := o.client.getJSON(ctx, query, nil, &inst); err != nil {
		o.logger.Warn("institution search failed", zap.String("company", c.Name), zap.Error(err))
		return err
	}
	if len(inst.Results) == 0 {
		return nil
	}
	signal.InstitutionID = inst.Results[0].ID
	signal.CitedByCount = inst.Results[0].CitedByCount

	if err := sleep(ctx, o.Delay()); err != nil {
		return err
	}

	worksQuery := fmt.Sprintf("%s/works?filter=institutions.id:%s&per-page=1",
		o.baseURL, url.QueryEscape(signal.InstitutionID))
	var works worksResponse
	if err := o.client.getJSON(ctx, worksQuery, nil, &works); err != nil {
		// Institution resolved, metric unavailable: partial success.
		o.logger.Warn("works count failed", zap.String("institution", signal.InstitutionID), zap.Error(err))
		return nil
	}
	signal.WorksCount = works.Meta.Count
	return nil
}
