package pitchmix

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// TempoPrecision is the number of decimals used for atempo factors.
	TempoPrecision = 6

	// atempo accepts factors in [0.5, 2.0] on every ffmpeg release; larger
	// corrections are chained.
	minTempoFactor = 0.5
	maxTempoFactor = 2.0

	inputLabel  = "0:a"
	baseLabel   = "base"
	outputLabel = "out"
)

// Branch is one path through the graph. The base branch has a nil Voice,
// Rate equal to the graph sample rate and no tempo factors.
type Branch struct {
	Label string
	Voice *Voice
	Rate  int
	Tempo []float64
}

// IsBase reports whether the branch carries the unmodified signal.
func (b Branch) IsBase() bool { return b.Voice == nil }

// SpeedFactor is the effective rate change after rounding to Rate.
func (b Branch) SpeedFactor(sampleRate int) float64 {
	return float64(b.Rate) / float64(sampleRate)
}

// FilterGraph describes split -> per-voice resample + retime -> mix.
type FilterGraph struct {
	SampleRate int
	Branches   []Branch
}

// BuildFilterGraph validates the voices against sampleRate and returns the
// graph. Voices are kept in order; the base branch is always first.
func BuildFilterGraph(sampleRate int, voices []Voice) (*FilterGraph, error) {
	if sampleRate <= 0 {
		return nil, &FilterGraphError{
			SampleRate: sampleRate,
			Reason:     fmt.Sprintf("sample rate must be positive, got %d", sampleRate),
		}
	}

	g := &FilterGraph{
		SampleRate: sampleRate,
		Branches:   make([]Branch, 0, len(voices)+1),
	}
	g.Branches = append(g.Branches, Branch{Label: baseLabel, Rate: sampleRate})

	for i := range voices {
		v := voices[i]
		if err := v.Validate(); err != nil {
			return nil, &FilterGraphError{SampleRate: sampleRate, Voice: &v, Reason: err.Error()}
		}

		rate := v.Rate(sampleRate)
		if rate < 1 {
			return nil, &FilterGraphError{
				SampleRate: sampleRate,
				Voice:      &v,
				Reason:     fmt.Sprintf("resample rate rounds to %d", rate),
			}
		}

		g.Branches = append(g.Branches, Branch{
			Label: fmt.Sprintf("v%d", i),
			Voice: &v,
			Rate:  rate,
			Tempo: tempoChain(v.Tempo()),
		})
	}

	return g, nil
}

// Voices returns the number of shifted branches.
func (g *FilterGraph) Voices() int {
	return len(g.Branches) - 1
}

// OutputLabel is the label to pass to -map, without brackets.
func (g *FilterGraph) OutputLabel() string {
	return outputLabel
}

// Filters returns the graph as individual filter chains, in order.
func (g *FilterGraph) Filters() []string {
	if g.Voices() == 0 {
		return []string{fmt.Sprintf("[%s]anull[%s]", inputLabel, outputLabel)}
	}

	n := len(g.Branches)
	filters := make([]string, 0, n+1)

	var split strings.Builder
	fmt.Fprintf(&split, "[%s]asplit=%d", inputLabel, n)
	for _, b := range g.Branches {
		fmt.Fprintf(&split, "[%s]", b.Label)
	}
	filters = append(filters, split.String())

	var mix strings.Builder
	mix.WriteString("[" + baseLabel + "]")
	for i, b := range g.Branches[1:] {
		shifted := fmt.Sprintf("s%d", i)
		chain := []string{
			fmt.Sprintf("asetrate=%d", b.Rate),
			fmt.Sprintf("aresample=%d", g.SampleRate),
		}
		for _, f := range b.Tempo {
			chain = append(chain, "atempo="+FormatTempo(f))
		}
		filters = append(filters, fmt.Sprintf("[%s]%s[%s]", b.Label, strings.Join(chain, ","), shifted))
		mix.WriteString("[" + shifted + "]")
	}

	fmt.Fprintf(&mix, "amix=inputs=%d:duration=first:dropout_transition=0[%s]", n, outputLabel)
	filters = append(filters, mix.String())

	return filters
}

// String renders the graph as a -filter_complex argument.
func (g *FilterGraph) String() string {
	return strings.Join(g.Filters(), ";")
}

// FormatTempo formats a tempo factor at TempoPrecision.
func FormatTempo(f float64) string {
	return strconv.FormatFloat(f, 'f', TempoPrecision, 64)
}

// tempoChain splits t into factors within [minTempoFactor, maxTempoFactor]
// whose product is t.
func tempoChain(t float64) []float64 {
	var chain []float64
	for t < minTempoFactor {
		chain = append(chain, minTempoFactor)
		t /= minTempoFactor
	}
	for t > maxTempoFactor {
		chain = append(chain, maxTempoFactor)
		t /= maxTempoFactor
	}
	if math.Abs(t-1) > 1e-12 || len(chain) == 0 {
		chain = append(chain, t)
	}
	return chain
}
