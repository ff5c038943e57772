package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"golang.org/x/time/rate"
)

// Client talks to an OpenAI-compatible provider over HTTPS JSON. Request
// shaping is driven by the model registry; retries happen here and nowhere
// else in the pipeline.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	registry   *Registry
	limiter    *rate.Limiter
	maxRetries int
	maxBackoff time.Duration
	logger     arbor.ILogger
}

// NewClient creates a provider client from configuration.
func NewClient(logger arbor.ILogger, config *common.AIConfig, registry *Registry) *Client {
	timeout := common.ParseDuration(config.Timeout, common.DefaultRequestTimeout)
	interval := common.ParseDuration(config.RateLimit, time.Second)

	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = common.DefaultMaxRetries
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		registry:   registry,
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		maxRetries: maxRetries,
		maxBackoff: common.DefaultMaxBackoff,
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type imagesResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// GenerateText runs one chat completion. The model's capability entry
// decides whether temperature is sent, which token-limit field is used and
// whether the system prompt rides in a system-role message or is folded
// into the user prompt.
func (c *Client) GenerateText(ctx context.Context, req interfaces.TextRequest) (*interfaces.TextResult, error) {
	if req.Model == "" {
		return nil, &ProviderError{Kind: ErrorKindRequest, Message: "model is required"}
	}
	caps := c.registry.Capabilities(req.Model)

	var messages []chatMessage
	userPrompt := req.Prompt
	if req.SystemPrompt != "" {
		if caps.SupportsSystemRole {
			messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
		} else {
			userPrompt = req.SystemPrompt + "\n\n" + req.Prompt
		}
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	payload := map[string]interface{}{
		"model":    req.Model,
		"messages": messages,
	}
	if req.MaxTokens > 0 {
		payload[caps.TokenLimitField] = req.MaxTokens
	}
	if req.Temperature > 0 && caps.SupportsTemperature {
		payload["temperature"] = req.Temperature
	}

	var resp chatResponse
	if err := c.doWithRetry(ctx, http.MethodPost, "/chat/completions", payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, &ProviderError{Kind: ErrorKindEmptyResponse, Message: "provider returned no content"}
	}

	result := &interfaces.TextResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		CostUSD:          c.registry.TextCost(req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		FinishReason:     resp.Choices[0].FinishReason,
	}

	c.logger.Debug().
		Str("model", req.Model).
		Int("total_tokens", result.TotalTokens).
		Float64("cost_usd", result.CostUSD).
		Str("finish_reason", result.FinishReason).
		Msg("Text generation completed")
	return result, nil
}

// GenerateImage runs one image generation request. Cost is a fixed table
// lookup per model and size, doubled for hd quality where supported.
func (c *Client) GenerateImage(ctx context.Context, req interfaces.ImageRequest) (*interfaces.ImageResult, error) {
	if req.Model == "" {
		return nil, &ProviderError{Kind: ErrorKindRequest, Message: "model is required"}
	}
	size := req.Size
	if size == "" {
		size = "1024x1024"
	}

	cost, err := c.registry.ImageCost(req.Model, size, req.Quality)
	if err != nil {
		return nil, &ProviderError{Kind: ErrorKindRequest, Message: err.Error(), Err: err}
	}

	payload := map[string]interface{}{
		"model":  req.Model,
		"prompt": req.Prompt,
		"n":      1,
		"size":   size,
	}
	if req.Quality != "" {
		payload["quality"] = req.Quality
	}
	if req.Style != "" {
		payload["style"] = req.Style
	}

	var resp imagesResponse
	if err := c.doWithRetry(ctx, http.MethodPost, "/images/generations", payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, &ProviderError{Kind: ErrorKindEmptyResponse, Message: "provider returned no image"}
	}

	c.logger.Debug().
		Str("model", req.Model).
		Str("size", size).
		Float64("cost_usd", cost).
		Msg("Image generation completed")
	return &interfaces.ImageResult{URL: resp.Data[0].URL, CostUSD: cost}, nil
}

// VerifyCredentials checks the API key with a cheap model-list request.
func (c *Client) VerifyCredentials(ctx context.Context) error {
	if c.apiKey == "" {
		return &ProviderError{Kind: ErrorKindAuth, Message: "API key is not configured"}
	}
	var resp struct {
		Data []json.RawMessage `json:"data"`
	}
	return c.doWithRetry(ctx, http.MethodGet, "/models", nil, &resp)
}

// doWithRetry executes one provider request with bounded retries. Backoff
// is exponential in the attempt number, capped, and replaced by the
// provider's Retry-After hint when present.
func (c *Client) doWithRetry(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var lastErr *ProviderError

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return classifyTransportError(err)
		}

		perr := c.do(ctx, method, path, payload, out)
		if perr == nil {
			return nil
		}
		lastErr = perr

		if !perr.Retryable() || attempt == c.maxRetries {
			break
		}

		delay := c.backoff(attempt)
		if perr.RetryAfter > 0 {
			delay = perr.RetryAfter
			if delay > c.maxBackoff {
				delay = c.maxBackoff
			}
		}

		c.logger.Warn().
			Str("path", path).
			Str("kind", string(perr.Kind)).
			Int("attempt", attempt).
			Int("max_attempts", c.maxRetries).
			Dur("delay", delay).
			Msg("Provider request failed, retrying")

		select {
		case <-ctx.Done():
			return classifyTransportError(ctx.Err())
		case <-time.After(delay):
		}
	}
	return lastErr
}

// backoff returns 2^attempt seconds capped at the configured maximum.
func (c *Client) backoff(attempt int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	if delay > c.maxBackoff {
		delay = c.maxBackoff
	}
	return delay
}

// do performs a single HTTP round trip and classifies any failure.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}, out interface{}) *ProviderError {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &ProviderError{Kind: ErrorKindRequest, Message: fmt.Sprintf("failed to encode request: %v", err), Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &ProviderError{Kind: ErrorKindRequest, Message: err.Error(), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(err)
	}

	if resp.StatusCode >= 400 {
		var errBody apiErrorBody
		_ = json.Unmarshal(data, &errBody)
		errType := errBody.Error.Type
		if errBody.Error.Code != "" {
			errType += " " + errBody.Error.Code
		}
		return classifyHTTPError(resp.StatusCode, errType, errBody.Error.Message, parseRetryAfter(resp.Header.Get("Retry-After")))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &ProviderError{Kind: ErrorKindRequest, Message: fmt.Sprintf("failed to decode response: %v", err), Err: err}
	}
	return nil
}
