package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrodesk/agrodesk/internal/engine"
)

var runbooksCmd = &cobra.Command{
	Use:   "runbooks",
	Short: "List the automated remediation runbooks",
	Run: func(cmd *cobra.Command, args []string) {
		for _, rb := range engine.RunbookCatalog() {
			fmt.Printf("%s — %s (%s, ~%.2gh)\n", rb.Key, rb.Name, rb.Difficulty, rb.EstimatedHours)
			for i, step := range rb.Steps {
				fmt.Printf("  %d. %s\n", i+1, step)
			}
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(runbooksCmd)
}
