// Package main provides the CLI for the leapdwh warehouse ETL.
package main

import (
	"os"

	"github.com/leapstack-labs/leapdwh/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
