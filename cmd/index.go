package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrodesk/agrodesk/internal/knowledge"
	"github.com/agrodesk/agrodesk/internal/progress"
)

var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Index knowledge-base articles into the vector store",
	Long: `Reads .md and .txt articles from the knowledge directory, embeds them,
and persists the vector index used to answer support requests. The
directory defaults to knowledge_dir from the config.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		dir := cfg.KnowledgeDir
		if len(args) == 1 {
			dir = args[0]
		}

		embedder, err := createEmbedder(cfg)
		if err != nil {
			return err
		}
		store, err := knowledge.NewChromemStore(embedder)
		if err != nil {
			return err
		}

		count, err := knowledge.IndexDir(cmd.Context(), store, dir, progress.NewReporter())
		if err != nil {
			return fmt.Errorf("indexing %s: %w", dir, err)
		}
		if count == 0 {
			fmt.Printf("No articles found in %s\n", dir)
			return nil
		}

		if err := store.Persist(cmd.Context(), cfg.IndexDir); err != nil {
			return fmt.Errorf("persisting index: %w", err)
		}

		fmt.Printf("Indexed %d articles from %s (%d documents in store)\n", count, dir, store.Count())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
