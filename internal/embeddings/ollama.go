package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OllamaEmbedder generates embeddings using a local Ollama instance.
type OllamaEmbedder struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// NewOllamaEmbedder creates a new Ollama embedder. Dimensions depend on the
// model; nomic-embed-text produces 768-dimensional vectors.
func NewOllamaEmbedder(baseURL, model string, dimensions int) *OllamaEmbedder {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &OllamaEmbedder{
		baseURL:    baseURL,
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{},
	}
}

func (e *OllamaEmbedder) Name() string {
	return e.model
}

func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))

	// The embeddings endpoint takes one prompt per call.
	for _, text := range texts {
		body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal ollama embed request: %w", err)
		}

		url := fmt.Sprintf("%s/api/embeddings", e.baseURL)
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		httpResp, err := e.client.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("ollama embed request failed: %w", err)
		}

		respBody, err := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read ollama embed response: %w", err)
		}

		if httpResp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("ollama embeddings returned status %d: %s", httpResp.StatusCode, string(respBody))
		}

		var apiResp ollamaEmbedResponse
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ollama embed response: %w", err)
		}

		embeddings = append(embeddings, apiResp.Embedding)
	}

	return embeddings, nil
}
