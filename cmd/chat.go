package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agrodesk/agrodesk/internal/db"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the help desk from the terminal",
	Long:  `Opens an interactive session against the decision engine. Type "exit" to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		database, err := db.Open(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		orch, _, err := buildOrchestrator(cmd.Context(), cfg, database, logger)
		if err != nil {
			return err
		}

		fmt.Println("agrodesk help desk. Type your question, or \"exit\" to quit.")
		fmt.Println()

		var sessionID string
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}

			res := orch.Process(cmd.Context(), line, sessionID)
			sessionID = res.SessionID

			fmt.Println()
			fmt.Println(res.Message)
			if res.WorkOrder != nil {
				fmt.Printf("\n[work order %s • %s • %s]\n",
					res.WorkOrder.OrderID, res.WorkOrder.Priority, res.WorkOrder.Specialist)
			}
			if verbose {
				fmt.Printf("\n(state %s, %.0f ms)\n", res.FlowState, res.ElapsedMS)
			}
			fmt.Println()
		}
		return scanner.Err()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
