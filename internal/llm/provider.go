package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// CompleteStructured runs a system+user prompt pair in JSON mode and returns
// the raw response content. Every reasoning stage in the engine goes through
// this helper so structured-output handling lives in one place.
func CompleteStructured(ctx context.Context, p Provider, model, system, user string, temperature float64, maxTokens int) (string, error) {
	resp, err := p.Complete(ctx, CompletionRequest{
		Model: model,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		JSONMode:    true,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
