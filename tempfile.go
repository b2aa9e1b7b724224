package pitchmix

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const tempPrefix = "pitchmix-"

// Workspace owns the temp paths of one job. Paths are unique per workspace
// and are removed together, exactly once, by Release.
type Workspace struct {
	id     string
	dir    string
	logger *slog.Logger

	mu       sync.Mutex
	paths    []string
	released bool
	once     sync.Once
}

// NewWorkspace prepares a workspace under dir, creating dir if needed.
// An empty dir means os.TempDir().
func NewWorkspace(dir string, logger *slog.Logger) (*Workspace, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &FileSystemError{Op: "create temp dir", Path: dir, Err: err}
	}

	return &Workspace{
		id:     uuid.NewString(),
		dir:    dir,
		logger: logger,
	}, nil
}

// ID is the workspace's unique identifier, also used as the job ID.
func (w *Workspace) ID() string { return w.id }

// Dir is the directory holding the workspace files.
func (w *Workspace) Dir() string { return w.dir }

// Allocate reserves a path named pitchmix-<id>-<role><ext>. The file is not
// created; whatever ends up at the path is removed on Release.
func (w *Workspace) Allocate(role, ext string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	path := filepath.Join(w.dir, tempPrefix+w.id+"-"+role+ext)
	if w.released {
		return "", &FileSystemError{Op: "allocate", Path: path, Err: errors.New("workspace released")}
	}
	for _, p := range w.paths {
		if p == path {
			return "", &FileSystemError{Op: "allocate", Path: path, Err: fs.ErrExist}
		}
	}
	w.paths = append(w.paths, path)
	return path, nil
}

// Paths returns the allocated paths in allocation order.
func (w *Workspace) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.paths...)
}

// Release removes every allocated path. Only the first call has any
// effect. Removal failures are logged, never returned.
func (w *Workspace) Release() {
	w.once.Do(func() {
		w.mu.Lock()
		w.released = true
		paths := w.paths
		w.mu.Unlock()

		for _, p := range paths {
			err := os.RemoveAll(p)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				w.logger.Warn("temp file cleanup failed",
					"workspace", w.id,
					"path", p,
					"error", &FileSystemError{Op: "remove", Path: p, Err: err})
				continue
			}
			w.logger.Debug("temp file removed", "workspace", w.id, "path", p)
		}
	})
}

// writeNewFile copies r into a new file at path; an existing file is an
// error.
func writeNewFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return &FileSystemError{Op: "create", Path: path, Err: err}
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return &FileSystemError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &FileSystemError{Op: "close", Path: path, Err: err}
	}
	return nil
}
