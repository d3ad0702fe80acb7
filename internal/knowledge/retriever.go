package knowledge

import "context"

// Snippet is one knowledge-base match returned from retrieval. An empty
// result list is a valid, non-error outcome.
type Snippet struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Category string  `json:"category"`
	Score    float32 `json:"score"`
}

// Article is a knowledge-base document to be indexed.
type Article struct {
	ID       string
	Title    string
	Category string
	Content  string
}

// Retriever serves top-K knowledge snippets for a free-text query.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]Snippet, error)
}
