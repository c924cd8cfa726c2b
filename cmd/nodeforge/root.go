package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nodeforge",
	Short: "nodeforge resolves action names into Blueprint graph nodes",
	Long: `nodeforge discovers the actions available to a visual-scripting graph and
creates nodes from symbolic action names. Run "nodeforge serve" to expose the
MCP tools over stdio.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
