// Package main is the entry point for ovm, the overlay manager CLI.
package main

import (
	"os"

	"github.com/overlay-tools/ovm/cmd/ovm/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
