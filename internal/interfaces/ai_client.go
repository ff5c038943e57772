package interfaces

import "context"

// TextRequest is one chat-style text completion request. Model-specific
// request shaping (temperature support, token-limit field naming, system
// role handling) is the client's responsibility.
type TextRequest struct {
	Prompt       string
	SystemPrompt string
	Model        string
	MaxTokens    int
	Temperature  float64
}

// TextResult is the normalized text completion response with cost applied.
type TextResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostUSD          float64
	FinishReason     string
}

// ImageRequest is one image generation request.
type ImageRequest struct {
	Prompt  string
	Model   string
	Size    string
	Quality string
	Style   string
}

// ImageResult is the normalized image generation response with cost applied.
type ImageResult struct {
	URL     string
	CostUSD float64
}

// AIClient talks to the external generation provider. Implementations own
// retry, backoff and cost accounting; callers receive classified errors.
type AIClient interface {
	GenerateText(ctx context.Context, req TextRequest) (*TextResult, error)
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
	VerifyCredentials(ctx context.Context) error
}
