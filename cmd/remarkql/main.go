// Package main provides the remarkql CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/remarkql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
