// Package main is the entrypoint for the sqlift CLI.
package main

import (
	"os"

	"github.com/sqlift-labs/sqlift/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
