package commands

import (
	"github.com/spf13/cobra"

	pitchmix "github.com/thadeu/go-pitchmix"
)

var graphRate int

type graphBranch struct {
	Label     string   `json:"label" yaml:"label"`
	Semitones *float64 `json:"semitones,omitempty" yaml:"semitones,omitempty"`
	Ratio     float64  `json:"ratio,omitempty" yaml:"ratio,omitempty"`
	Rate      int      `json:"rate" yaml:"rate"`
	Tempo     []string `json:"tempo,omitempty" yaml:"tempo,omitempty"`
}

type graphReport struct {
	SampleRate    int           `json:"sample_rate" yaml:"sample_rate"`
	Branches      []graphBranch `json:"branches" yaml:"branches"`
	FilterComplex string        `json:"filter_complex" yaml:"filter_complex"`
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the filter graph for a sample rate",
	Long: `Print the filter graph for a sample rate.

No engine is needed; this shows the per-voice resample rates and tempo
factors and the ffmpeg -filter_complex string.

Examples:
  pitchmix graph
  pitchmix graph --rate 48000 --voices 12,-12`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := pitchmix.BuildFilterGraph(graphRate, getConfig().VoiceList())
		if err != nil {
			return err
		}
		return outputResult(newGraphReport(g))
	},
}

func newGraphReport(g *pitchmix.FilterGraph) graphReport {
	report := graphReport{
		SampleRate:    g.SampleRate,
		FilterComplex: g.String(),
	}
	for _, b := range g.Branches {
		gb := graphBranch{Label: b.Label, Rate: b.Rate}
		if !b.IsBase() {
			s := b.Voice.Semitones
			gb.Semitones = &s
			gb.Ratio = b.Voice.Ratio()
		}
		for _, f := range b.Tempo {
			gb.Tempo = append(gb.Tempo, pitchmix.FormatTempo(f))
		}
		report.Branches = append(report.Branches, gb)
	}
	return report
}

func init() {
	graphCmd.Flags().IntVar(&graphRate, "rate", pitchmix.DefaultSampleRate, "input sample rate in Hz")
}
