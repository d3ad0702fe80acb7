package knowledge

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agrodesk/agrodesk/internal/progress"
)

// LoadDir reads knowledge-base articles from a directory tree. Each .md or
// .txt file becomes one article: the title comes from the first markdown
// heading (or the file name), the category from the immediate parent
// directory.
func LoadDir(root string) ([]Article, error) {
	var articles []Article

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}

		category := "general"
		if dir := filepath.Dir(rel); dir != "." {
			category = filepath.Base(dir)
		}

		articles = append(articles, Article{
			ID:       strings.TrimSuffix(rel, ext),
			Title:    articleTitle(string(content), d.Name()),
			Category: category,
			Content:  string(content),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	return articles, nil
}

// articleTitle extracts the first markdown heading, falling back to the
// file name without extension.
func articleTitle(content, filename string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# "))
		}
	}
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// IndexDir loads all articles under root and indexes them into the store,
// reporting per-article progress.
func IndexDir(ctx context.Context, store *ChromemStore, root string, reporter progress.Reporter) (int, error) {
	articles, err := LoadDir(root)
	if err != nil {
		return 0, err
	}
	if len(articles) == 0 {
		return 0, nil
	}

	reporter.Start(len(articles))
	defer reporter.Finish()

	for i, a := range articles {
		if err := store.AddArticles(ctx, []Article{a}); err != nil {
			return i, fmt.Errorf("indexing %s: %w", a.ID, err)
		}
		reporter.Update(i+1, a.Title)
	}

	return len(articles), nil
}
