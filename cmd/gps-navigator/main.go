package main

import "os"

// Version information - populated at build time via ldflags
var (
	Version   = "dev"     // Will be set to git tag if available, otherwise "dev"
	Commit    = "unknown" // Will be set to git commit hash
	BuildDate = "unknown" // Will be set to build timestamp
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
