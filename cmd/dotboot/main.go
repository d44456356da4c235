package main

import (
	"os"

	"github.com/arthur-debert/dotboot/cmd/dotboot/commands"
)

func main() {
	rootCmd := commands.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		commands.ReportError(os.Stderr, err)
		os.Exit(commands.ExitCode(err))
	}
}
