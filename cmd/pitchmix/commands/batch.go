package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	pitchmix "github.com/thadeu/go-pitchmix"
)

var batchDir string

// batchItem is one line of the batch report.
type batchItem struct {
	Input  string           `json:"input" yaml:"input"`
	Output string           `json:"output,omitempty" yaml:"output,omitempty"`
	Result *pitchmix.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Kind   string           `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error  string           `json:"error,omitempty" yaml:"error,omitempty"`
}

var batchCmd = &cobra.Command{
	Use:   "batch <input>...",
	Short: "Process several files concurrently",
	Long: `Process several files concurrently.

Every input is submitted at once; --workers bounds how many engine runs
happen in parallel. Outputs are written to -d as <name>_filtered.wav;
inputs sharing a base name get <name>_filtered_2.wav and so on, in
argument order. A failing input does not stop the others; the command fails if any input
failed.

Examples:
  pitchmix batch *.ogg -d mixed/
  pitchmix --workers 2 --json batch a.ogg b.m4a c.mp3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		p, err := newProcessor(ctx)
		if err != nil {
			return err
		}

		pending := make([]<-chan pitchmix.Outcome, len(args))
		for i, input := range args {
			pending[i] = p.ProcessAudioAsync(ctx, input, filepath.Base(input))
		}

		items := make([]batchItem, len(args))
		used := make(map[string]bool, len(args))
		failed := 0
		for i, ch := range pending {
			items[i] = collect(args[i], <-ch, used)
			if items[i].Error != "" {
				failed++
			}
		}

		printVerbose("Stats: %+v", p.Stats())
		if err := outputResult(items); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d inputs failed", failed, len(args))
		}
		printSuccess("Processed %d files into %s", len(args), batchDir)
		return nil
	},
}

// collect copies a finished job into batchDir under a name not yet in used.
func collect(input string, outcome pitchmix.Outcome, used map[string]bool) batchItem {
	item := batchItem{Input: input}
	if outcome.Err != nil {
		item.Kind = pitchmix.KindOf(outcome.Err).String()
		item.Error = outcome.Err.Error()
		return item
	}
	defer outcome.Output.Close()

	dest := filepath.Join(batchDir, claimName(used, outcome.Output.OutputName))
	if err := copyFile(outcome.Output.OutputPath, dest); err != nil {
		item.Kind = pitchmix.KindFileSystem.String()
		item.Error = err.Error()
		return item
	}

	res := outcome.Output.Result
	res.OutputPath = dest
	item.Output = dest
	item.Result = &res
	return item
}

// claimName returns name, or name with a _2, _3, ... suffix before the
// extension when an earlier input already took it.
func claimName(used map[string]bool, name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
	used[candidate] = true
	return candidate
}

func init() {
	batchCmd.Flags().StringVarP(&batchDir, "dir", "d", ".", "output directory")
}
