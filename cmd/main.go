package main

import (
	"os"

	"github.com/gmpapad/phronesis-engine/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
