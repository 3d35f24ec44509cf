package main

import (
	"github.com/spf13/cobra"

	"github.com/vrclog/whereami/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after applying defaults, ` + config.FileName + `,
WHEREAMI_* environment variables and flags, as TOML.

The output is a valid configuration file:
  whereami config > where-am-i.toml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.Write(cmd.OutOrStdout(), settings)
	},
}
