// Package main is the entry point for the semidx CLI.
package main

import (
	"os"

	"github.com/kvasirlabs/semidx/cmd/semidx/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
