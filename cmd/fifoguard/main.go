package main

import (
	"os"

	"github.com/jgalley/fifoguard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
