package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	pitchmix "github.com/thadeu/go-pitchmix"
)

var (
	processOutput string
	processName   string
)

var processCmd = &cobra.Command{
	Use:   "process <input>",
	Short: "Mix pitch-shifted voices over an audio file",
	Long: `Mix pitch-shifted voices over an audio file.

The input is probed for its sample rate, each voice is resampled and
tempo-corrected back to the original duration, and all branches are mixed
into a 16-bit PCM WAV.

The output is written to -o, or to <name>_filtered.wav in the current
directory. --name sets the declared original name used for the output name.

Examples:
  pitchmix process voice.ogg
  pitchmix process upload.bin --name "meeting notes.m4a"
  pitchmix --voices 7,-5,12 process voice.ogg -o chord.wav --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		if _, err := os.Stat(input); err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		p, err := newProcessor(ctx)
		if err != nil {
			return err
		}

		var result pitchmix.Result
		var dest string
		err = p.RunFile(ctx, input, processName, func(_ context.Context, res pitchmix.Result) error {
			dest = processOutput
			if dest == "" {
				dest = res.OutputName
			}
			result = res
			return copyFile(res.OutputPath, dest)
		})
		if err != nil {
			return fmt.Errorf("processing failed (%s): %w", pitchmix.KindOf(err), err)
		}

		abs, _ := filepath.Abs(dest)
		result.OutputPath = abs
		printSuccess("Wrote %s", dest)

		return outputResult(result)
	},
}

func init() {
	processCmd.Flags().StringVarP(&processOutput, "output", "o", "", "output file (default: <name>_filtered.wav)")
	processCmd.Flags().StringVar(&processName, "name", "", "declared original file name (default: input base name)")
}
