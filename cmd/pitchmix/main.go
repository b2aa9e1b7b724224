// Package main provides the pitchmix CLI tool.
//
// Usage:
//
//	pitchmix [flags] <command> [args]
//
// Commands:
//
//	process - Mix pitch-shifted voices over one audio file
//	batch   - Process several files concurrently
//	probe   - Show the first audio stream of a file
//	graph   - Print the filter graph for a sample rate
//	check   - Verify the engine binaries are installed
//
// Configuration:
//
//	Settings are read from the file given with --config, then from
//	PITCHMIX_* environment variables, then from flags.
package main

import (
	"fmt"
	"os"

	"github.com/thadeu/go-pitchmix/cmd/pitchmix/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
