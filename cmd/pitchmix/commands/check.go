package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	pitchmix "github.com/thadeu/go-pitchmix"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the engine binaries are installed",
	Long: `Verify the engine binaries are installed.

For ffmpeg both ffmpeg and ffprobe must run; for SoX the sox binary.

Examples:
  pitchmix check
  pitchmix --engine sox check`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}

		checker, ok := engine.(pitchmix.Checker)
		if !ok {
			return fmt.Errorf("engine %s cannot be checked", engine.Name())
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := checker.CheckInstalled(ctx); err != nil {
			return err
		}

		printSuccess("%s is available", engine.Name())
		return outputResult(map[string]any{
			"engine":    engine.Name(),
			"available": true,
		})
	},
}
