// Package main is the entry point for the LumenVault CLI.
package main

import (
	"os"

	"github.com/lumenkit/lumenvault/cmd/lumenvault/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
