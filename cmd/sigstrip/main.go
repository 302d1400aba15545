// Package main is the entry point for the sigstrip CLI.
package main

import (
	"os"

	"github.com/jmylchreest/sigstrip/cmd/sigstrip/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
