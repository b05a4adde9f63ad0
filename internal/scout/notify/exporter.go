// Package notify posts the dataset to the downstream email exporter. The
// exporter renders fields best-effort; the only obligation here is an
// ordered, name-deduplicated company list.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gartstein/scout/internal/scout/models"
	"go.uber.org/zap"
)

// Exporter is the client side of the email exporter's POST contract.
type Exporter struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewExporter(url string, logger *zap.Logger) *Exporter {
	return &Exporter{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.Named("exporter"),
	}
}

type exportRequest struct {
	RecipientAddress string           `json:"recipientAddress"`
	Companies        []models.Company `json:"companies"`
}

// Send posts the collection to the exporter, deduplicated by exact name.
func (e *Exporter) Send(ctx context.Context, recipient string, cc models.Collection) error {
	if e.url == "" {
		return fmt.Errorf("exporter URL not configured")
	}

	seen := make(map[string]bool, len(cc))
	companies := make([]models.Company, 0, len(cc))
	for i := range cc {
		if seen[cc[i].Name] {
			continue
		}
		seen[cc[i].Name] = true
		companies = append(companies, cc[i])
	}

	body, err := json.Marshal(exportRequest{RecipientAddress: recipient, Companies: companies})
	if err != nil {
		return fmt.Errorf("encode export request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to exporter: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("exporter returned %d: %s", resp.StatusCode, payload)
	}

	e.logger.Info("dataset exported",
		zap.String("recipient", recipient),
		zap.Int("companies", len(companies)),
	)
	return nil
}
