package main

import (
	"os"

	"github.com/sanderbog/testwave/apps/cli/cmd"
)

// Set via ldflags at build time.
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	os.Exit(cmd.Execute(version, buildTime, os.Args[1:], os.Stdout, os.Stderr))
}
