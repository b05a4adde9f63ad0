// Package config loads the YAML configuration for the enrichment service.
// Credentials are never read from YAML; they are pulled from the environment
// so config files can be committed safely.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the service looks for its config when no --config
// flag is given.
var DefaultPath = filepath.Join("internal", "scout", "config", "config.yaml")

// StoreConfig selects and parameterizes the record store backend.
type StoreConfig struct {
	// Backend is one of "file", "db", "remote".
	Backend string `yaml:"BACKEND"`
	// Path is the dataset file for the file backend.
	Path string `yaml:"PATH"`
	// Driver is "sqlite" or "postgres" for the db backend.
	Driver string `yaml:"DRIVER"`
	DSN    string `yaml:"DSN"`
	// ContentURL and HistoryURL point at the remote blob store's contents
	// and commit-history endpoints.
	ContentURL string `yaml:"CONTENT_URL"`
	HistoryURL string `yaml:"HISTORY_URL"`
	Token      string `yaml:"-"`
}

// LLMConfig configures the chat-completion providers.
type LLMConfig struct {
	// Consensus fans every leadership prompt out to all providers with a
	// present credential and merges by majority vote. When false, Provider
	// selects the single provider to trust.
	Consensus bool   `yaml:"CONSENSUS"`
	Provider  string `yaml:"PROVIDER"`

	AnthropicModel string `yaml:"ANTHROPIC_MODEL"`
	OpenAIModel    string `yaml:"OPENAI_MODEL"`
	GeminiModel    string `yaml:"GEMINI_MODEL"`
	GrokModel      string `yaml:"GROK_MODEL"`

	AnthropicKey string `yaml:"-"`
	OpenAIKey    string `yaml:"-"`
	GeminiKey    string `yaml:"-"`
	GrokKey      string `yaml:"-"`
}

// ApplyProviderOverride resolves a CLI provider selection over the configured
// one: "consensus" switches consensus mode on, any other name trusts that
// single provider. An empty name keeps the config as loaded.
func (l *LLMConfig) ApplyProviderOverride(name string) {
	if name == "" {
		return
	}
	if strings.EqualFold(name, "consensus") {
		l.Consensus = true
		return
	}
	l.Consensus = false
	l.Provider = name
}

// Config is the full service configuration.
type Config struct {
	HTTPPort    int    `yaml:"HTTP_PORT"`
	AdminSecret string `yaml:"-"`
	// DailyHourUTC is a pointer so an explicit 0 (midnight UTC) is
	// distinguishable from an absent key. Load guarantees it is non-nil.
	DailyHourUTC *int `yaml:"DAILY_HOUR_UTC"`

	Store StoreConfig `yaml:"STORE"`
	LLM   LLMConfig   `yaml:"LLM"`

	KafkaBrokers []string `yaml:"KAFKA_BROKERS"`
	Topic        string   `yaml:"TOPIC"`

	ExporterURL string `yaml:"EXPORTER_URL"`

	// LeadershipBatchSize companies per consensus prompt.
	LeadershipBatchSize int `yaml:"LEADERSHIP_BATCH_SIZE"`
	// IncrementalLimit caps records refreshed per source in incremental mode.
	IncrementalLimit int `yaml:"INCREMENTAL_LIMIT"`

	ProductHuntToken string `yaml:"-"`
	GitHubToken      string `yaml:"-"`
}

// Load reads the YAML file at path and applies environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTPPort == 0 {
		c.HTTPPort = 8087
	}
	if c.DailyHourUTC == nil {
		six := 6
		c.DailyHourUTC = &six
	}
	if c.LeadershipBatchSize == 0 {
		c.LeadershipBatchSize = 20
	}
	if c.IncrementalLimit == 0 {
		c.IncrementalLimit = 25
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "file"
	}
	if c.Store.Path == "" {
		c.Store.Path = "companies.json"
	}
	if c.LLM.AnthropicModel == "" {
		c.LLM.AnthropicModel = "claude-sonnet-4-20250514"
	}
	if c.LLM.OpenAIModel == "" {
		c.LLM.OpenAIModel = "gpt-4o"
	}
	if c.LLM.GeminiModel == "" {
		c.LLM.GeminiModel = "gemini-2.0-flash"
	}
	if c.LLM.GrokModel == "" {
		c.LLM.GrokModel = "grok-2-latest"
	}
}

func (c *Config) applyEnv() {
	c.AdminSecret = os.Getenv("SCOUT_ADMIN_SECRET")
	c.Store.Token = os.Getenv("SCOUT_STORE_TOKEN")
	c.ProductHuntToken = os.Getenv("PRODUCTHUNT_TOKEN")
	c.GitHubToken = os.Getenv("GITHUB_TOKEN")
	c.LLM.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	c.LLM.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.LLM.GeminiKey = os.Getenv("GEMINI_API_KEY")
	c.LLM.GrokKey = os.Getenv("XAI_API_KEY")
}
