package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <input>",
	Short: "Show the first audio stream of a file",
	Long: `Show the first audio stream of a file.

Reports the sample rate the processor would use, including whether the
fallback rate applies.

Examples:
  pitchmix probe voice.ogg
  pitchmix --engine sox probe tone.wav --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		info, err := engine.Probe(ctx, args[0])
		if err != nil {
			return fmt.Errorf("probe failed: %w", err)
		}

		cfg := getConfig()
		rate, fallback := info.SampleRateOr(cfg.FallbackSampleRate)
		result := map[string]any{
			"input":                args[0],
			"engine":               engine.Name(),
			"stream":               info,
			"sample_rate":          rate,
			"sample_rate_fallback": fallback,
		}
		return outputResult(result)
	},
}
