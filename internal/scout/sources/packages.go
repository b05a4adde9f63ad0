package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/scout/internal/scout/models"
	"go.uber.org/zap"
)

// PackagesConnector checks npm and PyPI download counts for the company's
// slugged name. A 404 from either registry just means the company publishes
// no package under that name.
type PackagesConnector struct {
	client  *client
	npmURL  string
	pypiURL string
	logger  *zap.Logger
	now     func() time.Time
}

func NewPackagesConnector(logger *zap.Logger) *PackagesConnector {
	return &PackagesConnector{
		client:  newClient(0),
		npmURL:  "https://api.npmjs.org/downloads/point/last-week",
		pypiURL: "https://pypistats.org/api/packages",
		logger:  logger.Named("packages"),
		now:     time.Now,
	}
}

func (p *PackagesConnector) Name() string         { return "packages" }
func (p *PackagesConnector) TTLDays() int         { return 30 }
func (p *PackagesConnector) Delay() time.Duration { return time.Second }

func (p *PackagesConnector) LastAttempt(c *models.Company) *time.Time {
	if c.Packages == nil {
		return nil
	}
	return &c.Packages.EnrichedAt
}

func (p *PackagesConnector) HasResult(c *models.Company) bool {
	return c.Packages != nil && (c.Packages.NPMWeekly != nil || c.Packages.PyPIMonthly != nil)
}

type npmResponse struct {
	Downloads int64 `json:"downloads"`
}

type pypiResponse struct {
	Data struct {
		LastMonth int64 `json:"last_month"`
	} `json:"data"`
}

func (p *PackagesConnector) Enrich(ctx context.Context, c *models.Company) error {
	signal := &models.PackageSignal{EnrichedAt: p.now()}
	defer func() { c.Packages = signal }()

	pkg := slug(c.Name)
	if pkg == "" {
		return nil
	}

	var npm npmResponse
	err := p.client.getJSON(ctx, fmt.Sprintf("%s/%s", p.npmURL, pkg), nil, &npm)
	switch {
	case err == nil:
		signal.NPMWeekly = &npm.Downloads
	case errors.Is(err, errNotFound):
		// No npm package under this name.
	default:
		p.logger.Warn("npm lookup failed", zap.String("package", pkg), zap.Error(err))
	}

	if err := sleep(ctx, p.Delay()); err != nil {
		return err
	}

	var pypi pypiResponse
	err = p.client.getJSON(ctx, fmt.Sprintf("%s/%s/recent", p.pypiURL, pkg), nil, &pypi)
	switch {
	case err == nil:
		signal.PyPIMonthly = &pypi.Data.LastMonth
	case errors.Is(err, errNotFound):
	default:
		p.logger.Warn("pypi lookup failed", zap.String("package", pkg), zap.Error(err))
	}
	return nil
}
