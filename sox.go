package pitchmix

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// scratchFormat keeps intermediate branches in float so mixing does not clip
// before the final conversion.
var scratchFormat = OutputFormat{Type: TYPE_WAV, Encoding: "floating-point", BitDepth: 32}

// SoxEngine executes filter graphs with SoX. Each branch is rendered to a
// scratch file with speed + rate + tempo, then the branches are mixed and
// trimmed to the base branch's length.
type SoxEngine struct {
	soxPath string
	verbose bool
	format  OutputFormat
	monitor *ResourceMonitor
	logger  *slog.Logger
}

// NewSoxEngine creates an engine using cfg.SoxPath.
func NewSoxEngine(cfg Config, monitor *ResourceMonitor, logger *slog.Logger) *SoxEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &SoxEngine{
		soxPath: cfg.SoxPath,
		verbose: cfg.Verbose,
		format:  WAV_PCM16,
		monitor: monitor,
		logger:  logger.With("engine", EngineSox),
	}
}

func (e *SoxEngine) Name() string { return EngineSox }

// CheckInstalled verifies that SoX is installed and accessible
func (e *SoxEngine) CheckInstalled(ctx context.Context) error {
	return checkBinary(ctx, e.soxPath, "--version")
}

// Probe reads stream metadata with `sox --i`.
func (e *SoxEngine) Probe(ctx context.Context, path string) (StreamInfo, error) {
	out, err := runCommand(ctx, e.monitor, e.soxPath, "--i", path)
	if err != nil {
		if stderr := strings.TrimSpace(stderrOf(err)); stderr != "" {
			err = fmt.Errorf("%w: %s", err, stderr)
		}
		return StreamInfo{}, &ProbeError{Path: path, Err: err}
	}

	info, err := parseSoxInfo(string(out))
	if err != nil {
		return StreamInfo{}, &ProbeError{Path: path, Err: err}
	}
	return info, nil
}

// Execute renders every branch, then mixes them into outputPath.
func (e *SoxEngine) Execute(ctx context.Context, graph *FilterGraph, inputPath, outputPath string) error {
	if graph == nil {
		return &FilterGraphError{Reason: "no graph"}
	}

	if graph.Voices() == 0 {
		if err := e.run(ctx, inputPath, e.passthroughArgs(graph, inputPath, outputPath)); err != nil {
			return err
		}
		return verifyOutput(e.Name(), inputPath, outputPath)
	}

	info, err := e.Probe(ctx, inputPath)
	if err != nil {
		return &EngineExecutionError{Engine: e.Name(), Input: inputPath, Err: err}
	}

	scratch, err := os.MkdirTemp(filepath.Dir(outputPath), tempPrefix+"sox-*")
	if err != nil {
		return &FileSystemError{Op: "create scratch dir", Path: filepath.Dir(outputPath), Err: err}
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			e.logger.Warn("scratch cleanup failed", "path", scratch, "error", err)
		}
	}()

	branchPaths := make([]string, 0, len(graph.Branches))
	for _, b := range graph.Branches {
		p := filepath.Join(scratch, b.Label+scratchFormat.Ext())
		if err := e.run(ctx, inputPath, e.branchArgs(graph, b, inputPath, p)); err != nil {
			return err
		}
		branchPaths = append(branchPaths, p)
	}

	length := baseLength(info, graph.SampleRate)
	if length == 0 {
		e.logger.Debug("input length unknown, mix not trimmed", "input", inputPath)
	}

	if err := e.run(ctx, inputPath, e.mixArgs(branchPaths, outputPath, length)); err != nil {
		return err
	}
	return verifyOutput(e.Name(), inputPath, outputPath)
}

func (e *SoxEngine) run(ctx context.Context, inputPath string, args []string) error {
	e.logger.Debug("running sox", "cmd", quoteArgs(e.soxPath, args))
	if _, err := runCommand(ctx, e.monitor, e.soxPath, args...); err != nil {
		return &EngineExecutionError{Engine: e.Name(), Input: inputPath, Stderr: stderrOf(err), Err: err}
	}
	return nil
}

func (e *SoxEngine) globalArgs() []string {
	if e.verbose {
		return []string{"-V3"}
	}
	return []string{"-q"}
}

// passthroughArgs converts the input to the output format at the graph rate.
func (e *SoxEngine) passthroughArgs(graph *FilterGraph, inputPath, outputPath string) []string {
	args := e.globalArgs()
	args = append(args, inputPath)
	args = append(args, e.format.SoxArgs()...)
	args = append(args, outputPath, "rate", strconv.Itoa(graph.SampleRate))
	return args
}

// branchArgs renders one branch. Voice branches change speed by the rounded
// rate ratio, resample back to the graph rate, then correct tempo.
func (e *SoxEngine) branchArgs(graph *FilterGraph, b Branch, inputPath, branchPath string) []string {
	args := e.globalArgs()
	args = append(args, inputPath)
	args = append(args, scratchFormat.SoxArgs()...)
	args = append(args, branchPath)

	if !b.IsBase() {
		args = append(args, "speed", strconv.FormatFloat(b.SpeedFactor(graph.SampleRate), 'f', -1, 64))
	}
	args = append(args, "rate", strconv.Itoa(graph.SampleRate))
	for _, f := range b.Tempo {
		args = append(args, "tempo", FormatTempo(f))
	}
	return args
}

// mixArgs sums the branches. A positive length trims the result to that
// many samples.
func (e *SoxEngine) mixArgs(branchPaths []string, outputPath string, length int64) []string {
	args := e.globalArgs()
	args = append(args, "-m")
	args = append(args, branchPaths...)
	args = append(args, e.format.SoxArgs()...)
	args = append(args, outputPath)
	if length > 0 {
		args = append(args, "trim", "0", fmt.Sprintf("%ds", length))
	}
	return args
}

// baseLength returns the input length in samples at sampleRate, or 0 when
// unknown.
func baseLength(info StreamInfo, sampleRate int) int64 {
	if info.Samples > 0 && info.SampleRate == sampleRate {
		return info.Samples
	}
	if info.Duration > 0 {
		return int64(math.Round(info.Duration.Seconds() * float64(sampleRate)))
	}
	return 0
}
