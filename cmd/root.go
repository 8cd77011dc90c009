/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Employee attendance tracking API",
	Long: `Records employee check-ins and check-outs and serves history, statistics
and CSV exports over a JSON API. Usage:

	attendance server
	attendance migrate up
	attendance seed --file development/seed.yaml
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it. This is
// called by main.main().
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
