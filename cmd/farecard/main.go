package main

import (
	"os"

	"github.com/alovak/farecard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
