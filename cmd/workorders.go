package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrodesk/agrodesk/internal/db"
	"github.com/agrodesk/agrodesk/internal/ticketing"
)

var (
	workOrdersStatus string
	workOrdersLimit  int
	noteAuthor       string
)

var workOrdersCmd = &cobra.Command{
	Use:     "workorders",
	Aliases: []string{"wo"},
	Short:   "Inspect and update work orders",
}

var workOrdersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List work orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := openOrderStore()
		if err != nil {
			return err
		}
		defer cleanup()

		records, err := store.List(cmd.Context(), workOrdersStatus, workOrdersLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No work orders found.")
			return nil
		}
		for _, rec := range records {
			fmt.Printf("%s  %-11s %-9s %-10s %s\n",
				rec.OrderID, rec.Status, rec.Priority, rec.Category, rec.Title)
		}
		return nil
	},
}

var workOrdersShowCmd = &cobra.Command{
	Use:   "show <order-id>",
	Short: "Show a work order with its notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := openOrderStore()
		if err != nil {
			return err
		}
		defer cleanup()

		rec, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s — %s\n", rec.OrderID, rec.Title)
		fmt.Printf("  status:      %s\n", rec.Status)
		fmt.Printf("  priority:    %s\n", rec.Priority)
		fmt.Printf("  category:    %s\n", rec.Category)
		fmt.Printf("  specialist:  %s\n", rec.Specialist)
		if rec.MachineID != "" {
			fmt.Printf("  machine:     %s\n", rec.MachineID)
		}
		if rec.FieldID != "" {
			fmt.Printf("  plot:        %s\n", rec.FieldID)
		}
		fmt.Printf("  created:     %s\n", rec.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Printf("\n%s\n", rec.Description)
		for _, note := range rec.Notes {
			fmt.Printf("\n[%s] %s: %s\n", note.CreatedAt.Format("2006-01-02 15:04"), note.Author, note.Note)
		}
		return nil
	},
}

var workOrdersStatusCmd = &cobra.Command{
	Use:   "status <order-id> <new-status>",
	Short: "Move a work order to a new status",
	Long:  `Valid statuses: pending, assigned, in_progress, completed, cancelled, on_hold. Transitions are checked.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := openOrderStore()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := store.UpdateStatus(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n", args[0], args[1])
		return nil
	},
}

var workOrdersNoteCmd = &cobra.Command{
	Use:   "note <order-id> <text>",
	Short: "Append a note to a work order",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := openOrderStore()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := store.AddNote(cmd.Context(), args[0], args[1], noteAuthor); err != nil {
			return err
		}
		fmt.Println("Note added.")
		return nil
	},
}

func openOrderStore() (*ticketing.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return ticketing.NewStore(database), func() { database.Close() }, nil
}

func init() {
	workOrdersListCmd.Flags().StringVar(&workOrdersStatus, "status", "", "filter by status")
	workOrdersListCmd.Flags().IntVar(&workOrdersLimit, "limit", 50, "maximum rows")
	workOrdersNoteCmd.Flags().StringVar(&noteAuthor, "author", "", "note author")

	workOrdersCmd.AddCommand(workOrdersListCmd, workOrdersShowCmd, workOrdersStatusCmd, workOrdersNoteCmd)
	rootCmd.AddCommand(workOrdersCmd)
}
