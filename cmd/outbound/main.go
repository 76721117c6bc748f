package main

import (
	"os"

	"github.com/canopyerp/outbound/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
