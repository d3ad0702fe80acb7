package llm

import (
	"context"
	"strings"
	"testing"
)

func TestNewProviderOpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	p, err := NewProvider("openai", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("p.Name() = %q, want %q", p.Name(), "openai")
	}
}

func TestNewProviderOpenAIMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewProvider("openai", "gpt-4o-mini")
	if err == nil {
		t.Fatal("NewProvider() should fail without OPENAI_API_KEY")
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("NewProvider() error = %v, want env var name in message", err)
	}
}

func TestNewProviderAnthropicMissingKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	if _, err := NewProvider("anthropic", "claude-sonnet-4-5-20250929"); err == nil {
		t.Fatal("NewProvider() should fail without ANTHROPIC_API_KEY")
	}
}

func TestNewProviderOllamaDefaultHost(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")

	p, err := NewProvider("ollama", "llama3")
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("p.Name() = %q, want %q", p.Name(), "ollama")
	}
}

func TestNewProviderUnsupported(t *testing.T) {
	_, err := NewProvider("bedrock", "some-model")
	if err == nil {
		t.Fatal("NewProvider() should fail for unsupported provider types")
	}
	if !strings.Contains(err.Error(), "bedrock") {
		t.Errorf("NewProvider() error = %v, want provider type in message", err)
	}
}

type recordingProvider struct {
	lastReq CompletionRequest
	content string
}

func (p *recordingProvider) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	p.lastReq = req
	return &CompletionResponse{Content: p.content, Model: req.Model}, nil
}

func (p *recordingProvider) Name() string { return "recording" }

func TestCompleteStructured(t *testing.T) {
	p := &recordingProvider{content: `{"ok":true}`}

	got, err := CompleteStructured(context.Background(), p, "test-model",
		"You are a classifier.", "the planter stopped", 0.2, 500)
	if err != nil {
		t.Fatalf("CompleteStructured() error = %v", err)
	}
	if got != `{"ok":true}` {
		t.Errorf("got = %q, want %q", got, `{"ok":true}`)
	}

	req := p.lastReq
	if !req.JSONMode {
		t.Error("request should use JSON mode")
	}
	if req.Temperature != 0.2 || req.MaxTokens != 500 {
		t.Errorf("req.Temperature = %v, req.MaxTokens = %d, want 0.2, 500", req.Temperature, req.MaxTokens)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("len(req.Messages) = %d, want 2", len(req.Messages))
	}
	if req.Messages[0].Role != RoleSystem || req.Messages[1].Role != RoleUser {
		t.Errorf("message roles = %q, %q, want system, user", req.Messages[0].Role, req.Messages[1].Role)
	}
}
