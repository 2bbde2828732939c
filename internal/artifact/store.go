// Package artifact manages the transient source files handed to the compiler.
//
// ONE FILE PER REQUEST:
// The compiler only reads source from a file path, so every compilation needs a
// file on disk. If all requests shared one path, request B could overwrite
// request A's source while A's compiler is still starting up, and A would
// compile B's code. Each Acquire therefore creates a brand-new file whose name
// contains an xid (globally unique, sortable, no coordination needed), opened
// with O_EXCL so an existing file is never reused.
//
// LIFETIME:
// Acquire → compiler reads the file → Release. Release must run on every exit
// path; callers defer it right after a successful Acquire.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/xid"

	"github.com/sakif/gran-playground/internal/apperror"
)

const filePrefix = "src-"

// Store creates artifacts in a single directory.
// It holds no per-request state, so one Store is shared by all requests.
type Store struct {
	dir    string
	ext    string
	logger *slog.Logger
}

// NewStore creates the artifact directory if needed and returns a Store
// writing files with the given extension (e.g. ".gran").
func NewStore(dir, ext string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	// The compiler runs from its own working directory, so artifact paths
	// must not depend on ours.
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("artifact: resolving directory %s: %w", dir, err)
	}
	dir = abs
	// 0700: submitted source is private to the service user
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("artifact: creating directory %s: %w", dir, err)
	}

	return &Store{
		dir:    dir,
		ext:    ext,
		logger: logger,
	}, nil
}

// Dir returns the directory artifacts are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Artifact is one request's source file.
type Artifact struct {
	ID   string // xid, unique per Acquire
	Name string // base file name
	Path string // absolute path handed to the compiler

	once       sync.Once
	releaseErr error
	logger     *slog.Logger
}

// Acquire writes content to a new, uniquely named file.
// On failure nothing is left on disk and the error wraps apperror.ErrArtifact.
func (s *Store) Acquire(content string) (*Artifact, error) {
	id := xid.New().String()
	name := filePrefix + id + s.ext
	path := filepath.Join(s.dir, name)

	// O_EXCL: fail instead of silently reusing a file that already exists
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, apperror.ArtifactFailed("create", err)
	}

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(path)
		return nil, apperror.ArtifactFailed("write", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, apperror.ArtifactFailed("close", err)
	}

	s.logger.Debug("artifact acquired",
		slog.String("artifact", id),
		slog.Int("bytes", len(content)),
	)

	return &Artifact{
		ID:     id,
		Name:   name,
		Path:   path,
		logger: s.logger,
	}, nil
}

// Release removes the artifact file.
//
// Only the first call does any work; later calls return the first result.
// A file that is already gone counts as released.
func (a *Artifact) Release() error {
	a.once.Do(func() {
		err := os.Remove(a.Path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			a.releaseErr = apperror.ArtifactFailed("remove", err)
			return
		}
		a.logger.Debug("artifact released", slog.String("artifact", a.ID))
	})
	return a.releaseErr
}

// Location is the path the compiler should be given.
func (a *Artifact) Location() string {
	return a.Path
}
