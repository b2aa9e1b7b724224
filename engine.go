package pitchmix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Engine is an external audio decode/filter/encode engine.
//
// Probe returns metadata of the first audio stream, or a *ProbeError when
// the file cannot be read at all. Execute runs graph against inputPath and
// returns nil only when outputPath holds a complete audio file.
type Engine interface {
	Name() string
	Probe(ctx context.Context, path string) (StreamInfo, error)
	Execute(ctx context.Context, graph *FilterGraph, inputPath, outputPath string) error
}

// Checker is implemented by engines that can verify their binaries.
type Checker interface {
	CheckInstalled(ctx context.Context) error
}

// NewEngine builds the backend selected by cfg.Engine. The monitor may be
// nil.
func NewEngine(cfg Config, monitor *ResourceMonitor, logger *slog.Logger) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Engine {
	case EngineSox:
		return NewSoxEngine(cfg, monitor, logger), nil
	default:
		return NewFFmpegEngine(cfg, monitor, logger), nil
	}
}

// verifyOutput checks that the engine left a non-empty file behind.
func verifyOutput(engine, inputPath, outputPath string) error {
	info, err := os.Stat(outputPath)
	switch {
	case err != nil:
		return &EngineExecutionError{Engine: engine, Input: inputPath, Err: fmt.Errorf("output missing: %w", err)}
	case info.Size() == 0:
		return &EngineExecutionError{Engine: engine, Input: inputPath, Err: errors.New("output is empty")}
	}
	return nil
}
