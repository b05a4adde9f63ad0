package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/scout/internal/scout/models"
	"go.uber.org/zap"
)

// GitHubConnector resolves the company's slug to a GitHub organization, sums
// stars over the org's repositories, and reads commit activity for the most
// starred one. The stats endpoint answers 202 while GitHub computes the
// result; that leaves CommitsLastYear nil as a partial success.
type GitHubConnector struct {
	client  *client
	baseURL string
	token   string
	logger  *zap.Logger
	now     func() time.Time
}

func NewGitHubConnector(token string, logger *zap.Logger) *GitHubConnector {
	return &GitHubConnector{
		client:  newClient(0),
		baseURL: "https://api.github.com",
		token:   token,
		logger:  logger.Named("github"),
		now:     time.Now,
	}
}

func (g *GitHubConnector) Name() string         { return "github" }
func (g *GitHubConnector) TTLDays() int         { return 7 }
func (g *GitHubConnector) Delay() time.Duration { return time.Second }

func (g *GitHubConnector) LastAttempt(c *models.Company) *time.Time {
	if c.GitHub == nil {
		return nil
	}
	return &c.GitHub.EnrichedAt
}

func (g *GitHubConnector) HasResult(c *models.Company) bool {
	return c.GitHub != nil && c.GitHub.Org != ""
}

func (g *GitHubConnector) headers() map[string]string {
	h := map[string]string{"Accept": "application/vnd.github+json"}
	if g.token != "" {
		h["Authorization"] = "Bearer " + g.token
	}
	return h
}

type orgResponse struct {
	Login       string `json:"login"`
	PublicRepos int    `json:"public_repos"`
}

type repoEntry struct {
	Name            string `json:"name"`
	StargazersCount int    `json:"stargazers_count"`
}

func (g *GitHubConnector) Enrich(ctx context.Context, c *models.Company) error {
	signal := &models.GitHubSignal{EnrichedAt: g.now()}
	defer func() { c.GitHub = signal }()

	org := slug(c.Name)
	var orgResp orgResponse
	err := g.client.getJSON(ctx, fmt.Sprintf("%s/orgs/%s", g.baseURL, org), g.headers(), &orgResp)
	if errors.Is(err, errNotFound) {
		// Known absent: no org under this slug.
		return nil
	}
	if err != nil {
		g.logger.Warn("org lookup failed", zap.String("org", org), zap.Error(err))
		return err
	}
	signal.Org = orgResp.Login
	signal.PublicRepos = orgResp.PublicRepos

	if err := sleep(ctx, g.Delay()); err != nil {
		return err
	}

	var repos []repoEntry
	reposURL := fmt.Sprintf("%s/orgs/%s/repos?per_page=100&sort=pushed", g.baseURL, org)
	if err := g.client.getJSON(ctx, reposURL, g.headers(), &repos); err != nil {
		g.logger.Warn("repos listing failed", zap.String("org", org), zap.Error(err))
		return nil
	}
	var top repoEntry
	for _, repo := range repos {
		signal.Stars += repo.StargazersCount
		if repo.StargazersCount >= top.StargazersCount {
			top = repo
		}
	}
	if top.Name == "" {
		return nil
	}
	signal.TopRepo = top.Name

	if err := sleep(ctx, g.Delay()); err != nil {
		return err
	}

	commits, err := g.commitActivity(ctx, org, top.Name)
	if err != nil {
		if !errors.Is(err, errAccepted) {
			g.logger.Warn("commit activity failed", zap.String("repo", top.Name), zap.Error(err))
		}
		return nil
	}
	signal.CommitsLastYear = &commits
	return nil
}

type weeklyActivity struct {
	Total int `json:"total"`
}

func (g *GitHubConnector) commitActivity(ctx context.Context, org, repo string) (int, error) {
	var weeks []weeklyActivity
	url := fmt.Sprintf("%s/repos/%s/%s/stats/commit_activity", g.baseURL, org, repo)
	if err := g.client.getJSON(ctx, url, g.headers(), &weeks); err != nil {
		return 0, err
	}
	total := 0
	for _, w := range weeks {
		total += w.Total
	}
	return total, nil
}
