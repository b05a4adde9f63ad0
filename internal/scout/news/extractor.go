// Package news turns headlines into structured company events. It scans a
// Google News RSS feed for funding/acquisition/IPO stories, hands the
// headlines plus the list of tracked companies to a chat-completion
// provider, and parses the strict-JSON event list the model returns.
package news

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gartstein/scout/internal/scout/dataset"
	"github.com/gartstein/scout/internal/scout/llm"
	"github.com/gartstein/scout/internal/scout/models"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

const defaultQuery = `startup funding OR acquisition OR IPO`

// maxHeadlines caps how many feed items go into one prompt.
const maxHeadlines = 40

// Extractor extracts typed events from news headlines.
type Extractor struct {
	provider llm.Provider
	feedURL  string
	fetch    func(ctx context.Context, url string) ([]byte, error)
	parser   *gofeed.Parser
	logger   *zap.Logger
}

func NewExtractor(provider llm.Provider, logger *zap.Logger) *Extractor {
	httpClient := &http.Client{Timeout: 20 * time.Second}
	return &Extractor{
		provider: provider,
		feedURL: fmt.Sprintf("https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en",
			url.QueryEscape(defaultQuery)),
		fetch: func(ctx context.Context, u string) ([]byte, error) {
			return fetchBody(ctx, httpClient, u)
		},
		parser: gofeed.NewParser(),
		logger: logger.Named("news_extractor"),
	}
}

// Extract returns the events worth applying: well-typed, attributed to a
// company, and at least medium confidence. Low-confidence events are dropped
// here, before the mutator ever sees them.
func (e *Extractor) Extract(ctx context.Context, cc models.Collection) ([]dataset.Event, error) {
	headlines, err := e.headlines(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect headlines: %w", err)
	}
	if len(headlines) == 0 {
		e.logger.Info("no headlines to analyze")
		return nil, nil
	}

	prompt := buildPrompt(headlines, cc)
	text, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", e.provider.Name(), err)
	}

	var parsed struct {
		Events []dataset.Event `json:"events"`
	}
	if err := llm.Decode(text, &parsed); err != nil {
		return nil, err
	}

	var events []dataset.Event
	for _, ev := range parsed.Events {
		if !validType(ev.Type) || strings.TrimSpace(ev.Company) == "" {
			continue
		}
		if ev.Confidence == "low" {
			continue
		}
		events = append(events, ev)
	}
	e.logger.Info("events extracted",
		zap.Int("headlines", len(headlines)),
		zap.Int("raw", len(parsed.Events)),
		zap.Int("kept", len(events)),
	)
	return events, nil
}

func (e *Extractor) headlines(ctx context.Context) ([]string, error) {
	raw, err := e.fetch(ctx, e.feedURL)
	if err != nil {
		return nil, err
	}
	feed, err := e.parser.ParseString(string(raw))
	if err != nil {
		return nil, err
	}
	var headlines []string
	for _, item := range feed.Items {
		if item.Title == "" {
			continue
		}
		headlines = append(headlines, item.Title)
		if len(headlines) == maxHeadlines {
			break
		}
	}
	return headlines, nil
}

func validType(t dataset.EventType) bool {
	switch t {
	case dataset.EventFunding, dataset.EventAcquisition, dataset.EventIPO, dataset.EventMilestone:
		return true
	}
	return false
}

func buildPrompt(headlines []string, cc models.Collection) string {
	var b strings.Builder
	b.WriteString("You are analyzing startup news headlines. Extract discrete company events.\n")
	b.WriteString("Respond ONLY with JSON: {\"events\": [{\"type\": \"funding\"|\"acquisition\"|\"ipo\"|\"milestone\", ")
	b.WriteString("\"company\": ..., \"details\": {\"amount\"?, \"round\"?, \"investors\"?, \"valuation\"?, \"acquirer\"?, \"value\"?, \"description\"?}, ")
	b.WriteString("\"confidence\": \"high\"|\"medium\"|\"low\", \"date\": \"YYYY-MM-DD\"}]}\n")
	b.WriteString("Amounts use a <number><M|B|T> suffix, e.g. \"$250M\". ")
	b.WriteString("Report confidence \"high\" only when the headline states the event plainly. No prose, no markdown.\n\n")

	b.WriteString("Tracked companies:\n")
	for i := range cc {
		b.WriteString("- ")
		b.WriteString(cc[i].Name)
		b.WriteByte('\n')
	}

	b.WriteString("\nHeadlines:\n")
	for _, h := range headlines {
		b.WriteString("- ")
		b.WriteString(h)
		b.WriteByte('\n')
	}
	return b.String()
}

func fetchBody(ctx context.Context, client *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/rss+xml")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("feed returned %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}
