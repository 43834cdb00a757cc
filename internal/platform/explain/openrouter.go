package explain

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/aihealth/agent-api/internal/domain/metric"
	"github.com/aihealth/agent-api/internal/platform/i18n"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "deepseek/deepseek-chat"
)

// OpenRouterConfig carries the collaborator endpoint settings. BaseURL
// and Model default to the OpenRouter chat-completions endpoint.
type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenRouterClient is the production Explainer, speaking the
// OpenAI-compatible chat-completions protocol. Timeouts and retries at
// the batch level belong to the Orchestrator; the client only honors the
// context it is handed.
type OpenRouterClient struct {
	http  *resty.Client
	model string
}

func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenRouterBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenRouterModel
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	return &OpenRouterClient{http: client, model: cfg.Model}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenRouterClient) Explain(ctx context.Context, lang i18n.Language, m metric.HealthMetric) (string, error) {
	prompt := i18n.F(lang, "explain_prompt", m.Name, m.Value, m.Unit, m.ReferenceRange, m.Status)

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:       c.model,
			Messages:    []chatMessage{{Role: "user", Content: prompt}},
			MaxTokens:   300,
			Temperature: 0.3,
		}).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openrouter request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("openrouter status %d: %s", resp.StatusCode(), resp.String())
	}
	if out.Error != nil {
		return "", fmt.Errorf("openrouter error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openrouter returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
