package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// stdout receives command results.
var stdout io.Writer = os.Stdout

// outputResult writes result to stdout as YAML, or JSON with --json.
func outputResult(result any) error {
	return writeResult(stdout, result, isJSONOutput())
}

func writeResult(w io.Writer, result any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// copyFile copies src to dst, creating dst's directory if needed.
func copyFile(src, dst string) error {
	dir := filepath.Dir(dst)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	return out.Close()
}

// printVerbose prints a message to stderr with --verbose.
func printVerbose(format string, args ...any) {
	if isVerbose() {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// printSuccess prints a success message with checkmark
func printSuccess(format string, args ...any) {
	if isJSONOutput() {
		return
	}
	fmt.Fprintf(os.Stderr, "✓ "+format+"\n", args...)
}
