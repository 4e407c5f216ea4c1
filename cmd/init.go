package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docpilot/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize docpilot configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the LLM provider, data directory and editing defaults, and writes them to .docpilot.yml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
