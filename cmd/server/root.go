package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "splitledger",
	Short: "SplitLedger - shared expense tracking API",
	Long: `SplitLedger is a multi-tenant expense-splitting API.

Users form groups, log shared expenses, and record each member's share
and payment toward them.

Run 'splitledger serve' to start the server, or 'splitledger seed' to
load demo data.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
}
