package sources

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gartstein/scout/internal/scout/models"
	"go.uber.org/zap"
)

// ITunesConnector finds the company's best-rated app via the iTunes Search
// API. The API's published limit is roughly 20 calls/minute, hence the long
// inter-call delay.
type ITunesConnector struct {
	client  *client
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

func NewITunesConnector(logger *zap.Logger) *ITunesConnector {
	return &ITunesConnector{
		client:  newClient(0),
		baseURL: "https://itunes.apple.com/search",
		logger:  logger.Named("itunes"),
		now:     time.Now,
	}
}

func (i *ITunesConnector) Name() string         { return "itunes" }
func (i *ITunesConnector) TTLDays() int         { return 30 }
func (i *ITunesConnector) Delay() time.Duration { return 3 * time.Second }

func (i *ITunesConnector) LastAttempt(c *models.Company) *time.Time {
	if c.AppStore == nil {
		return nil
	}
	return &c.AppStore.EnrichedAt
}

func (i *ITunesConnector) HasResult(c *models.Company) bool {
	return c.AppStore != nil && c.AppStore.AppName != ""
}

type itunesResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		TrackName         string  `json:"trackName"`
		AverageUserRating float64 `json:"averageUserRating"`
		UserRatingCount   int     `json:"userRatingCount"`
	} `json:"results"`
}

func (i *ITunesConnector) Enrich(ctx context.Context, c *models.Company) error {
	signal := &models.AppStoreSignal{EnrichedAt: i.now()}
	defer func() { c.AppStore = signal }()

	query := fmt.Sprintf("%s?term=%s&entity=software&limit=1",
		i.baseURL, url.QueryEscape(c.Name))
	var resp itunesResponse
	if err := i.client.getJSON(ctx, query, nil, &resp); err != nil {
		i.logger.Warn("search failed", zap.String("company", c.Name), zap.Error(err))
		return err
	}
	if resp.ResultCount == 0 || len(resp.Results) == 0 {
		return nil
	}

	app := resp.Results[0]
	signal.AppName = app.TrackName
	signal.Rating = app.AverageUserRating
	signal.RatingCount = app.UserRatingCount
	return nil
}
