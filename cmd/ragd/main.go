// Package main is the entry point of the retrieval service.
package main

import (
	"os"

	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/vektor-io/ragd/internal/ragd"
)

func main() {
	if err := ragd.NewApp().Execute(); err != nil {
		os.Exit(1)
	}
}
