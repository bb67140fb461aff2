// Package workspace stages the temporary files backing one execution and
// guarantees their removal.
//
// SCOPED RESOURCE CONTRACT:
// Every successful Prepare must be paired with exactly one Dispose, and the
// caller is expected to defer it right away:
//
//	ws, err := manager.Prepare(code, desc, stdin)
//	if err != nil { ... }
//	defer manager.Dispose(ws)
//
// ISOLATION WITHOUT LOCKS:
// All executions share one root directory. Each Prepare creates its own
// subdirectory named after a fresh xid, so concurrent executions never touch
// the same path and no mutex is needed. Two submissions that both declare
// "public class Main" end up in different directories.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rs/xid"

	"github.com/sakif/code-runner/internal/apperror"
	"github.com/sakif/code-runner/internal/language"
)

// StdinFile is the file name holding the submission's standard input.
const StdinFile = "stdin.txt"

// Workspace is the set of temp files backing one execution attempt.
type Workspace struct {
	Token        string
	Dir          string
	SourcePath   string
	StdinPath    string
	ArtifactPath string // empty for interpreted languages
	Name         Name
}

// Manager creates and disposes workspaces under a shared root directory.
type Manager struct {
	root   string
	logger *slog.Logger
}

// NewManager creates the root directory if needed and returns a Manager.
// Failing to create the root is the one genuinely exceptional condition of
// the engine, so it is returned as an error.
func NewManager(root string, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperror.Workspace("setup", fmt.Errorf("creating %s: %w", root, err))
	}
	return &Manager{root: root, logger: logger}, nil
}

// Root returns the shared directory all workspaces live under.
func (m *Manager) Root() string {
	return m.root
}

// Prepare writes code and stdin into a fresh workspace.
func (m *Manager) Prepare(code string, desc language.Descriptor, stdin string) (*Workspace, error) {
	// MkdirAll is idempotent; this also recovers if the root was removed
	// out from under a running server.
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, apperror.Workspace("prepare", err)
	}

	token := xid.New().String()
	dir := filepath.Join(m.root, token)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, apperror.Workspace("prepare", fmt.Errorf("creating %s: %w", dir, err))
	}

	name := DeclaredName(code, desc)
	paths := desc.PathsFor(dir, name.Value)
	ws := &Workspace{
		Token:        token,
		Dir:          dir,
		SourcePath:   paths.Source,
		StdinPath:    filepath.Join(dir, StdinFile),
		ArtifactPath: paths.Artifact,
		Name:         name,
	}

	if err := os.WriteFile(ws.SourcePath, []byte(code), 0o644); err != nil {
		m.Dispose(ws)
		return nil, apperror.Workspace("prepare", fmt.Errorf("writing source: %w", err))
	}
	if err := os.WriteFile(ws.StdinPath, []byte(stdin), 0o644); err != nil {
		m.Dispose(ws)
		return nil, apperror.Workspace("prepare", fmt.Errorf("writing stdin: %w", err))
	}

	m.logger.Debug("workspace prepared",
		slog.String("token", token),
		slog.String("source", filepath.Base(ws.SourcePath)),
		slog.String("name", name.Kind.String()),
	)
	return ws, nil
}

// Dispose deletes every file of the workspace and its directory.
//
// Failures are logged and swallowed: a failed cleanup must never replace or
// hide the result of the execution it belongs to. Dispose is safe to call
// with nil and more than once.
func (m *Manager) Dispose(ws *Workspace) {
	if ws == nil {
		return
	}

	for _, path := range []string{ws.SourcePath, ws.StdinPath, ws.ArtifactPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("failed to remove workspace file",
				slog.String("token", ws.Token),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}

	// Toolchains leave extra files behind (Foo$Inner.class, object files),
	// so the directory is removed recursively.
	if err := os.RemoveAll(ws.Dir); err != nil {
		m.logger.Warn("failed to remove workspace directory",
			slog.String("token", ws.Token),
			slog.String("dir", ws.Dir),
			slog.String("error", err.Error()),
		)
	}
}
