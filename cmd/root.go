package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Quote pricing and lifecycle engine",
	Long:  `Prices merchandising and picking quotes, drives their lifecycle, and delivers expiry notifications`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
