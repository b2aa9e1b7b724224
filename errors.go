package pitchmix

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEngineUnavailable reports that the engine binary could not be started.
// At startup this is fatal; during a job it is wrapped in an
// EngineExecutionError.
var ErrEngineUnavailable = errors.New("processing engine unavailable")

// ErrorKind tags the failure class of a job.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindProbe
	KindFilterGraph
	KindEngineExecution
	KindFileSystem
)

func (k ErrorKind) String() string {
	switch k {
	case KindProbe:
		return "probe"
	case KindFilterGraph:
		return "filter_graph"
	case KindEngineExecution:
		return "engine_execution"
	case KindFileSystem:
		return "file_system"
	default:
		return "unknown"
	}
}

// KindOf classifies err by the outermost typed error in its chain.
func KindOf(err error) ErrorKind {
	for err != nil {
		switch err.(type) {
		case *ProbeError:
			return KindProbe
		case *FilterGraphError:
			return KindFilterGraph
		case *EngineExecutionError:
			return KindEngineExecution
		case *FileSystemError:
			return KindFileSystem
		}
		err = errors.Unwrap(err)
	}
	return KindUnknown
}

// ProbeError means the input could not be opened or parsed by the prober.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// FilterGraphError means the graph parameters are invalid. It is raised
// before the engine is invoked.
type FilterGraphError struct {
	SampleRate int
	Voice      *Voice
	Reason     string
}

func (e *FilterGraphError) Error() string {
	if e.Voice != nil {
		return fmt.Sprintf("filter graph: voice %s at %d Hz: %s", e.Voice, e.SampleRate, e.Reason)
	}
	return fmt.Sprintf("filter graph: %s", e.Reason)
}

// EngineExecutionError means the engine ran and failed for this input.
type EngineExecutionError struct {
	Engine string
	Input  string
	Stderr string
	Err    error
}

func (e *EngineExecutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed on %s: %v", e.Engine, e.Input, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		fmt.Fprintf(&b, "\nstderr: %s", stderr)
	}
	return b.String()
}

func (e *EngineExecutionError) Unwrap() error { return e.Err }

// FileSystemError wraps temp path allocation and I/O failures.
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error { return e.Err }
