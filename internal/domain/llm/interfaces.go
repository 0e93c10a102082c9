package llm

import "context"

// GenerationRequest carries a single text-generation call.
// MaxNewTokens of zero leaves the limit to the provider.
type GenerationRequest struct {
	SystemPrompt string
	Prompt       string
	MaxNewTokens int
	Temperature  float64
}

// GenerationResponse is the generated text together with the token usage reported by the model.
type GenerationResponse struct {
	OutputText   string
	InputTokens  int64
	OutputTokens int64
}

// AsyncGeneration is delivered on the channel returned by Model.GenerateAsync.
type AsyncGeneration struct {
	Response GenerationResponse
	Err      error
}

// Model generates text for a prompt. Implementations must be safe for concurrent use.
type Model interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResponse, error)
	// GenerateAsync starts a generation and returns a channel that yields exactly one value before it is closed.
	GenerateAsync(ctx context.Context, req GenerationRequest) <-chan AsyncGeneration
}

// GenerateFunc matches the blocking Generate signature.
type GenerateFunc func(ctx context.Context, req GenerationRequest) (GenerationResponse, error)

// RunAsync runs fn on its own goroutine and delivers the outcome on a buffered channel,
// so the goroutine never blocks if the caller stops listening.
func RunAsync(ctx context.Context, req GenerationRequest, fn GenerateFunc) <-chan AsyncGeneration {
	out := make(chan AsyncGeneration, 1)
	go func() {
		defer close(out)
		resp, err := fn(ctx, req)
		out <- AsyncGeneration{Response: resp, Err: err}
	}()
	return out
}
