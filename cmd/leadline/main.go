// Package main is the entry point for the leadline CLI.
package main

import (
	"fmt"
	"os"

	"github.com/sevaro/leadline/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
