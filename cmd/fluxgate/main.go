package main

import (
	"os"

	"github.com/fluxgate-io/fluxgate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
