package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agrodesk/agrodesk/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize agrodesk configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure agrodesk and generates a .agrodesk.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
