package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bureauctl",
		Short:         "Operator tooling for the bureau service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(emiCmd())
	root.AddCommand(normalizeCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(devCertsCmd())
	root.AddCommand(tokenCmd())

	return root
}
