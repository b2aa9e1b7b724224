package pitchmix

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Markers in ffmpeg stderr that mean the graph itself was rejected.
var graphRejectedMarkers = []string{
	"No such filter",
	"Error parsing filterchain",
	"Error parsing a filter description",
}

// FFmpegEngine runs graphs through ffmpeg and probes with ffprobe.
type FFmpegEngine struct {
	ffmpegPath  string
	ffprobePath string
	verbose     bool
	format      OutputFormat
	monitor     *ResourceMonitor
	logger      *slog.Logger
}

// NewFFmpegEngine creates an engine using the binaries named in cfg.
func NewFFmpegEngine(cfg Config, monitor *ResourceMonitor, logger *slog.Logger) *FFmpegEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegEngine{
		ffmpegPath:  cfg.FFmpegPath,
		ffprobePath: cfg.FFprobePath,
		verbose:     cfg.Verbose,
		format:      WAV_PCM16,
		monitor:     monitor,
		logger:      logger.With("engine", EngineFFmpeg),
	}
}

func (e *FFmpegEngine) Name() string { return EngineFFmpeg }

// CheckInstalled verifies that both ffmpeg and ffprobe run.
func (e *FFmpegEngine) CheckInstalled(ctx context.Context) error {
	if err := checkBinary(ctx, e.ffmpegPath, "-version"); err != nil {
		return err
	}
	return checkBinary(ctx, e.ffprobePath, "-version")
}

// Probe reads stream metadata with ffprobe's JSON writer.
func (e *FFmpegEngine) Probe(ctx context.Context, path string) (StreamInfo, error) {
	out, err := runCommand(ctx, e.monitor, e.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)
	if err != nil {
		if stderr := strings.TrimSpace(stderrOf(err)); stderr != "" {
			err = fmt.Errorf("%w: %s", err, stderr)
		}
		return StreamInfo{}, &ProbeError{Path: path, Err: err}
	}

	info, err := parseFFprobe(out)
	if err != nil {
		return StreamInfo{}, &ProbeError{Path: path, Err: err}
	}
	return info, nil
}

// Execute runs graph against inputPath and writes outputPath.
func (e *FFmpegEngine) Execute(ctx context.Context, graph *FilterGraph, inputPath, outputPath string) error {
	if graph == nil {
		return &FilterGraphError{Reason: "no graph"}
	}

	// the command is logged through slog below
	cmd := e.command(ctx, graph, inputPath, outputPath).Silent(true).Compile()
	e.logger.Debug("running ffmpeg", "cmd", quoteArgs(e.ffmpegPath, cmd.Args[1:]))

	if _, err := runCmd(ctx, e.monitor, cmd); err != nil {
		stderr := stderrOf(err)
		for _, marker := range graphRejectedMarkers {
			if strings.Contains(stderr, marker) {
				return &FilterGraphError{
					SampleRate: graph.SampleRate,
					Reason:     fmt.Sprintf("ffmpeg rejected graph %q: %s", graph.String(), strings.TrimSpace(stderr)),
				}
			}
		}
		return &EngineExecutionError{Engine: e.Name(), Input: inputPath, Stderr: stderr, Err: err}
	}

	return verifyOutput(e.Name(), inputPath, outputPath)
}

// command builds the ffmpeg invocation for graph. The stream carries ctx so
// the compiled process is killed when the job is cancelled.
func (e *FFmpegEngine) command(ctx context.Context, graph *FilterGraph, inputPath, outputPath string) *ffmpeg.Stream {
	kwargs := ffmpeg.KwArgs(e.format.FFmpegArgs())
	kwargs["filter_complex"] = graph.String()
	kwargs["map"] = "[" + graph.OutputLabel() + "]"
	kwargs["ar"] = graph.SampleRate

	logLevel := "error"
	if e.verbose {
		logLevel = "info"
	}

	stream := ffmpeg.Input(inputPath).
		Output(outputPath, kwargs).
		GlobalArgs("-hide_banner", "-nostdin", "-loglevel", logLevel)
	stream.Context = ctx

	return stream.OverWriteOutput().SetFfmpegPath(e.ffmpegPath)
}

// buildArgs returns the ffmpeg arguments for graph, without the binary.
func (e *FFmpegEngine) buildArgs(graph *FilterGraph, inputPath, outputPath string) []string {
	return e.command(context.Background(), graph, inputPath, outputPath).GetArgs()
}
