package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// OpenAIProvider implements Provider for any OpenAI-compatible chat
// completions endpoint. Grok speaks the same wire format, so it reuses this
// client with a different name, base URL, and model.
type OpenAIProvider struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewOpenAIProvider(apiKey, model string, logger *zap.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		name:       "openai",
		apiKey:     apiKey,
		baseURL:    "https://api.openai.com/v1",
		model:      model,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger.Named("openai"),
	}
}

// NewGrokProvider builds an x.ai client over the OpenAI-compatible API.
func NewGrokProvider(apiKey, model string, logger *zap.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		name:       "grok",
		apiKey:     apiKey,
		baseURL:    "https://api.x.ai/v1",
		model:      model,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger.Named("grok"),
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       p.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	var resp chatResponse
	err = completeWithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			p.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
		return doProviderRequest(p.httpClient, req, &resp)
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
