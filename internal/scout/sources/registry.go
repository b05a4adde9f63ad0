package sources

import (
	"fmt"

	"github.com/gartstein/scout/internal/scout/config"
	e "github.com/gartstein/scout/internal/scout/errors"
	"go.uber.org/zap"
)

// All builds every connector in the order they run.
func All(cfg *config.Config, logger *zap.Logger) []Connector {
	return []Connector{
		NewHNConnector(logger),
		NewWikipediaConnector(logger),
		NewPatentsConnector(logger),
		NewProductHuntConnector(cfg.ProductHuntToken, logger),
		NewOpenAlexConnector(logger),
		NewTrancoConnector("", logger),
		NewITunesConnector(logger),
		NewPackagesConnector(logger),
		NewGitHubConnector(cfg.GitHubToken, logger),
		NewSECConnector(logger),
		NewNewsConnector(logger),
	}
}

// Select filters connectors by name, returning all when names is empty.
func Select(connectors []Connector, names []string) ([]Connector, error) {
	if len(names) == 0 {
		return connectors, nil
	}
	byName := make(map[string]Connector, len(connectors))
	for _, c := range connectors {
		byName[c.Name()] = c
	}
	selected := make([]Connector, 0, len(names))
	for _, name := range names {
		c, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown source %q", e.ErrConfiguration, name)
		}
		selected = append(selected, c)
	}
	return selected, nil
}
