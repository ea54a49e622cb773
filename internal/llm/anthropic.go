package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"math-chat/internal/config"
	"math-chat/internal/logger"

	"github.com/sirupsen/logrus"
)

const anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
const anthropicVersion = "2023-06-01"

// AnthropicProvider implements Provider using direct Anthropic Messages API calls
type AnthropicProvider struct {
	config *config.AnthropicConfig
	models *config.ModelsConfig
	client *http.Client
	url    string
}

// NewAnthropicProvider creates a new Anthropic provider with config
func NewAnthropicProvider(anthropicConfig *config.AnthropicConfig, modelsConfig *config.ModelsConfig) *AnthropicProvider {
	return &AnthropicProvider{
		config: anthropicConfig,
		models: modelsConfig,
		client: &http.Client{},
		url:    anthropicMessagesURL,
	}
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type messageParam struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesRequest struct {
	Model     string         `json:"model"`
	MaxTokens int            `json:"max_tokens"`
	System    string         `json:"system,omitempty"`
	Messages  []messageParam `json:"messages"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Error   *apiError      `json:"error,omitempty"`
}

// Complete sends a completion request, retrying transient failures with
// exponential backoff. The returned text is non-empty on success; after
// the retry budget is exhausted the last failure is surfaced wrapped in
// ErrCompletionFailed.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("prompt must not be empty")
	}

	model := req.Model
	if model == "" {
		model = p.models.DefaultModel()
	}
	if !p.models.IsValidModel(model) {
		return "", fmt.Errorf("unsupported model %q", model)
	}

	var lastErr error
	for attempt := 0; attempt <= p.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := p.config.RetryBaseDelay << (attempt - 1)
			logger.Log.WithFields(logrus.Fields{
				"attempt": attempt,
				"delay":   delay.String(),
			}).Warn("Retrying completion request")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrCompletionFailed, ctx.Err())
			}
		}

		text, err := p.doRequest(ctx, model, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	logger.Log.WithError(lastErr).WithField("model", model).Error("Completion failed after retries")
	return "", fmt.Errorf("%w: %v", ErrCompletionFailed, lastErr)
}

// doRequest performs a single Messages API call with the configured
// per-attempt timeout.
func (p *AnthropicProvider) doRequest(ctx context.Context, model string, req CompletionRequest) (string, error) {
	reqBody := messagesRequest{
		Model:     model,
		MaxTokens: p.config.MaxTokens,
		System:    req.System,
		Messages: []messageParam{
			{
				Role: "user",
				Content: []contentBlock{
					{Type: "text", Text: req.Prompt},
				},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, p.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.config.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	logger.Log.WithFields(logrus.Fields{
		"model":         model,
		"prompt_length": len(req.Prompt),
	}).Debug("Calling Anthropic API")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp messagesResponse
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Error != nil {
			return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}

	for _, block := range msgResp.Content {
		if block.Type == "text" && block.Text != "" {
			logger.Log.WithField("content_length", len(block.Text)).Debug("Extracted content from response")
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("no text content in response")
}
