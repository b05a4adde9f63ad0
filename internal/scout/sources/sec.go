package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gartstein/scout/internal/scout/models"
	"go.uber.org/zap"
)

// SECConnector checks EDGAR for the company: a full-text search resolves the
// CIK, then the submissions feed yields filing volume and the latest form.
// EDGAR requires a descriptive User-Agent and tolerates ~10 req/s.
type SECConnector struct {
	client         *client
	searchURL      string
	submissionsURL string
	logger         *zap.Logger
	now            func() time.Time
}

func NewSECConnector(logger *zap.Logger) *SECConnector {
	return &SECConnector{
		client:         newClient(0),
		searchURL:      "https://efts.sec.gov/LATEST/search-index",
		submissionsURL: "https://data.sec.gov/submissions",
		logger:         logger.Named("sec"),
		now:            time.Now,
	}
}

func (s *SECConnector) Name() string         { return "sec" }
func (s *SECConnector) TTLDays() int         { return 30 }
func (s *SECConnector) Delay() time.Duration { return 150 * time.Millisecond }

func (s *SECConnector) LastAttempt(c *models.Company) *time.Time {
	if c.SEC == nil {
		return nil
	}
	return &c.SEC.EnrichedAt
}

func (s *SECConnector) HasResult(c *models.Company) bool {
	return c.SEC != nil && c.SEC.CIK != ""
}

type secSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source struct {
				CIK string `json:"cik"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type secSubmissionsResponse struct {
	Filings struct {
		Recent struct {
			Form       []string `json:"form"`
			FilingDate []string `json:"filingDate"`
		} `json:"recent"`
	} `json:"filings"`
}

func (s *SECConnector) Enrich(ctx context.Context, c *models.Company) error {
	signal := &models.SECSignal{EnrichedAt: s.now()}
	defer func() { c.SEC = signal }()

	query := fmt.Sprintf("%s?q=%s", s.searchURL, url.QueryEscape(quoted(c.Name)))
	var search secSearchResponse
	err := s.client.getJSON(ctx, query, nil, &search)
	if errors.Is(err, errNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Warn("full-text search failed", zap.String("company", c.Name), zap.Error(err))
		return err
	}
	if len(search.Hits.Hits) == 0 {
		return nil
	}
	cik := search.Hits.Hits[0].Source.CIK
	if cik == "" {
		return nil
	}
	signal.CIK = cik

	if err := sleep(ctx, s.Delay()); err != nil {
		return err
	}

	subURL := fmt.Sprintf("%s/CIK%010s.json", s.submissionsURL, cik)
	var subs secSubmissionsResponse
	if err := s.client.getJSON(ctx, subURL, nil, &subs); err != nil {
		// CIK resolved, submissions unavailable: partial success.
		s.logger.Warn("submissions fetch failed", zap.String("cik", cik), zap.Error(err))
		return nil
	}

	recent := subs.Filings.Recent
	signal.FilingCount = len(recent.Form)
	if len(recent.Form) > 0 {
		signal.LatestForm = recent.Form[0]
	}
	if len(recent.FilingDate) > 0 {
		signal.LatestFiled = recent.FilingDate[0]
	}
	return nil
}
