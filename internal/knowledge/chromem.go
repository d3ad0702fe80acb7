package knowledge

import (
	"context"
	"fmt"
	"path/filepath"

	chromem "github.com/philippgille/chromem-go"

	"github.com/agrodesk/agrodesk/internal/embeddings"
)

const collectionName = "knowledge-base"

// ChromemStore implements Retriever using an in-memory chromem-go vector
// database with optional gob export/import for persistence across runs.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
}

// NewChromemStore creates a new in-memory ChromemStore.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		embedder:   embedder,
	}, nil
}

// AddArticles indexes knowledge-base articles into the vector store.
func (s *ChromemStore) AddArticles(ctx context.Context, articles []Article) error {
	if len(articles) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(articles))
	for i, a := range articles {
		docs[i] = chromem.Document{
			ID:      a.ID,
			Content: a.Content,
			Metadata: map[string]string{
				"title":    a.Title,
				"category": a.Category,
			},
		}
	}

	return s.collection.AddDocuments(ctx, docs, 1)
}

func (s *ChromemStore) Search(ctx context.Context, query string, topK int) ([]Snippet, error) {
	if topK <= 0 {
		topK = 5
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := s.collection.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	snippets := make([]Snippet, len(results))
	for i, r := range results {
		snippets[i] = Snippet{
			ID:       r.ID,
			Title:    r.Metadata["title"],
			Content:  r.Content,
			Category: r.Metadata["category"],
			Score:    r.Similarity,
		}
	}

	return snippets, nil
}

// Count returns the number of indexed articles.
func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

// Persist exports the vector store to a compressed gob file in dir.
func (s *ChromemStore) Persist(_ context.Context, dir string) error {
	return s.db.ExportToFile(filepath.Join(dir, "knowledge.gob.gz"), true, "")
}

// Load imports a previously persisted vector store from dir. A missing file
// is not an error; the store just starts empty.
func (s *ChromemStore) Load(_ context.Context, dir string) error {
	err := s.db.ImportFromFile(filepath.Join(dir, "knowledge.gob.gz"), "")
	if err != nil {
		return fmt.Errorf("importing knowledge store: %w", err)
	}

	col, err := s.db.GetOrCreateCollection(collectionName, nil, embeddings.ToChromemFunc(s.embedder))
	if err != nil {
		return fmt.Errorf("reopening collection: %w", err)
	}
	s.collection = col
	return nil
}
