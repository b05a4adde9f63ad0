package llm

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiProvider implements Provider over the official GenAI SDK. The client
// is built lazily on first use because the SDK constructor takes a context.
type GeminiProvider struct {
	apiKey string
	model  string
	logger *zap.Logger

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiProvider(apiKey, model string, logger *zap.Logger) *GeminiProvider {
	return &GeminiProvider{
		apiKey: apiKey,
		model:  model,
		logger: logger.Named("gemini"),
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}

	result, err := client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("empty response")
	}
	return text, nil
}

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: p.apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	p.client = client
	return client, nil
}
