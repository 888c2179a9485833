package main

import (
	"os"

	"github.com/ivlev/sketchstory/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=..."
var version string

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
