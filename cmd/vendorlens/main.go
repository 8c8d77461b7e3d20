// Package main provides the vendorlens CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "vendorlens",
		Short: "Vendor evaluation dashboard",
		Long: `vendorlens loads a vendor evaluation workbook (companies, solutions,
comparative analysis and requirement alignment) and serves it as a
per-session dashboard API.`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newInspectCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
