package models

import "time"

// HNStory is one ranked Hacker News story.
type HNStory struct {
	Title     string `json:"title"`
	URL       string `json:"url,omitempty"`
	Points    int    `json:"points"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// HNSignal holds Hacker News discussion volume for a company.
type HNSignal struct {
	StoryCount int       `json:"storyCount"`
	TopStories []HNStory `json:"topStories,omitempty"`
	EnrichedAt time.Time `json:"enrichedAt"`
}

// WikipediaSignal holds the resolved article title and its recent pageviews.
// A resolved Title with nil PageViews30d is a partial success: the entity was
// found but the metric fetch failed.
type WikipediaSignal struct {
	Title        string    `json:"title,omitempty"`
	PageViews30d *int64    `json:"pageViews30d,omitempty"`
	EnrichedAt   time.Time `json:"enrichedAt"`
}

// PatentSignal holds granted-patent volume from PatentsView.
type PatentSignal struct {
	PatentCount  int       `json:"patentCount"`
	RecentTitles []string  `json:"recentTitles,omitempty"`
	EnrichedAt   time.Time `json:"enrichedAt"`
}

// ProductHuntSignal holds launch posts and vote totals.
type ProductHuntSignal struct {
	PostCount  int       `json:"postCount"`
	TopPost    string    `json:"topPost,omitempty"`
	Votes      int       `json:"votes"`
	EnrichedAt time.Time `json:"enrichedAt"`
}

// OpenAlexSignal holds the resolved institution and its publication output.
type OpenAlexSignal struct {
	InstitutionID string    `json:"institutionId,omitempty"`
	WorksCount    int       `json:"worksCount"`
	CitedByCount  int       `json:"citedByCount"`
	EnrichedAt    time.Time `json:"enrichedAt"`
}

// TrancoSignal holds the company domain's Tranco traffic rank.
type TrancoSignal struct {
	Domain     string    `json:"domain,omitempty"`
	Rank       *int      `json:"rank,omitempty"`
	EnrichedAt time.Time `json:"enrichedAt"`
}

// AppStoreSignal holds the best iTunes Search match for the company name.
type AppStoreSignal struct {
	AppName     string    `json:"appName,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	RatingCount int       `json:"ratingCount,omitempty"`
	EnrichedAt  time.Time `json:"enrichedAt"`
}

// PackageSignal holds npm and PyPI download counts for the company's slug.
type PackageSignal struct {
	NPMWeekly   *int64    `json:"npmWeekly,omitempty"`
	PyPIMonthly *int64    `json:"pypiMonthly,omitempty"`
	EnrichedAt  time.Time `json:"enrichedAt"`
}

// GitHubSignal holds organization activity from the GitHub REST API.
// CommitsLastYear is nil when the stats endpoint was still computing (202).
type GitHubSignal struct {
	Org             string    `json:"org,omitempty"`
	PublicRepos     int       `json:"publicRepos,omitempty"`
	Stars           int       `json:"stars,omitempty"`
	TopRepo         string    `json:"topRepo,omitempty"`
	CommitsLastYear *int      `json:"commitsLastYear,omitempty"`
	EnrichedAt      time.Time `json:"enrichedAt"`
}

// SECSignal holds EDGAR registration and filing activity.
type SECSignal struct {
	CIK         string    `json:"cik,omitempty"`
	FilingCount int       `json:"filingCount,omitempty"`
	LatestForm  string    `json:"latestForm,omitempty"`
	LatestFiled string    `json:"latestFiled,omitempty"`
	EnrichedAt  time.Time `json:"enrichedAt"`
}

// Headline is one news item attributed to a company.
type Headline struct {
	Title     string `json:"title"`
	Link      string `json:"link,omitempty"`
	Published string `json:"published,omitempty"`
}

// NewsSignal holds recent news headlines mentioning the company.
type NewsSignal struct {
	Headlines  []Headline `json:"headlines,omitempty"`
	EnrichedAt time.Time  `json:"enrichedAt"`
}
