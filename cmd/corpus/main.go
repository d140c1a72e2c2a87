// Package main provides the entry point for the corpus CLI.
package main

import (
	"fmt"
	"os"

	"github.com/corpushq/corpus/cmd/corpus/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
