package workspace

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-runner/internal/language"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := NewManager(filepath.Join(t.TempDir(), "ws"), logger)
	require.NoError(t, err)
	return m
}

func resolve(t *testing.T, id string) language.Descriptor {
	t.Helper()
	d, err := language.Default().Resolve(id)
	require.NoError(t, err)
	return d
}

func residue(t *testing.T, m *Manager) []string {
	t.Helper()
	entries, err := os.ReadDir(m.Root())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestPrepare_WritesSourceAndStdin(t *testing.T) {
	m := newTestManager(t)

	ws, err := m.Prepare("print(input())", resolve(t, "python"), "hello\n")
	require.NoError(t, err)
	defer m.Dispose(ws)

	src, err := os.ReadFile(ws.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, "print(input())", string(src))

	in, err := os.ReadFile(ws.StdinPath)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(in))

	assert.Equal(t, "main.py", filepath.Base(ws.SourcePath))
	assert.Empty(t, ws.ArtifactPath)
	assert.Equal(t, ws.Token, filepath.Base(ws.Dir))
}

func TestPrepare_EmptyStdinStillCreatesFile(t *testing.T) {
	m := newTestManager(t)

	ws, err := m.Prepare("puts 1", resolve(t, "ruby"), "")
	require.NoError(t, err)
	defer m.Dispose(ws)

	info, err := os.Stat(ws.StdinPath)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestPrepare_JavaNamedAfterPublicType(t *testing.T) {
	m := newTestManager(t)
	code := "public class Foo {\n  public static void main(String[] a) {}\n}\n"

	ws, err := m.Prepare(code, resolve(t, "java"), "")
	require.NoError(t, err)

	assert.Equal(t, "Foo.java", filepath.Base(ws.SourcePath))
	assert.Equal(t, "Foo.class", filepath.Base(ws.ArtifactPath))
	assert.Equal(t, NameParsed, ws.Name.Kind)

	// Simulate the compiler leaving an artifact plus an inner class behind.
	require.NoError(t, os.WriteFile(ws.ArtifactPath, []byte{0xca, 0xfe}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ws.Dir, "Foo$Inner.class"), nil, 0o644))

	m.Dispose(ws)

	assert.NoFileExists(t, ws.SourcePath)
	assert.NoFileExists(t, ws.ArtifactPath)
	assert.Empty(t, residue(t, m))
}

func TestPrepare_JavaFallsBackToMain(t *testing.T) {
	m := newTestManager(t)

	ws, err := m.Prepare("class Hidden {}", resolve(t, "java"), "")
	require.NoError(t, err)
	defer m.Dispose(ws)

	assert.Equal(t, "Main.java", filepath.Base(ws.SourcePath))
	assert.Equal(t, NameDefault, ws.Name.Kind)
}

func TestDispose_LeavesNoResidue(t *testing.T) {
	m := newTestManager(t)

	for _, id := range []string{"python", "c", "java", "go"} {
		ws, err := m.Prepare("x", resolve(t, id), "in")
		require.NoError(t, err)
		m.Dispose(ws)
	}

	assert.Empty(t, residue(t, m))
}

func TestDispose_IsIdempotentAndNilSafe(t *testing.T) {
	m := newTestManager(t)

	ws, err := m.Prepare("x", resolve(t, "python"), "")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.Dispose(ws)
		m.Dispose(ws)
		m.Dispose(nil)
	})
}

func TestDispose_LogsCleanupFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	m, err := NewManager(filepath.Join(t.TempDir(), "ws"), logger)
	require.NoError(t, err)

	ws, err := m.Prepare("x", resolve(t, "python"), "")
	require.NoError(t, err)

	// A non-empty directory where the source file should be cannot be
	// removed with os.Remove, even by root.
	require.NoError(t, os.Remove(ws.SourcePath))
	require.NoError(t, os.MkdirAll(filepath.Join(ws.SourcePath, "keep"), 0o755))
	realDir := ws.Dir
	// RemoveAll rejects paths ending in ".".
	ws.Dir = realDir + string(filepath.Separator) + "."

	assert.NotPanics(t, func() { m.Dispose(ws) })

	var msgs []string
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var line map[string]any
		require.NoError(t, json.Unmarshal(raw, &line))
		assert.Equal(t, "WARN", line["level"])
		assert.Equal(t, ws.Token, line["token"])
		assert.NotEmpty(t, line["error"])
		msgs = append(msgs, line["msg"].(string))
	}
	assert.Equal(t, []string{"failed to remove workspace file", "failed to remove workspace directory"}, msgs)

	_, err = os.Stat(filepath.Join(realDir, StdinFile))
	assert.ErrorIs(t, err, os.ErrNotExist, "files that could be removed still are")
}

func TestPrepare_RecreatesMissingRoot(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, os.RemoveAll(m.Root()))

	ws, err := m.Prepare("x", resolve(t, "python"), "")
	require.NoError(t, err)
	m.Dispose(ws)
}

func TestPrepare_ConcurrentTokensAreUnique(t *testing.T) {
	m := newTestManager(t)
	java := resolve(t, "java")
	const n = 50

	var (
		mu     sync.Mutex
		seen   = make(map[string]bool)
		wg     sync.WaitGroup
		failed bool
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ws, err := m.Prepare("public class Main {}", java, "")
			if err != nil {
				mu.Lock()
				failed = true
				mu.Unlock()
				return
			}
			defer m.Dispose(ws)

			mu.Lock()
			seen[ws.SourcePath] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.False(t, failed)
	assert.Len(t, seen, n)
	assert.Empty(t, residue(t, m))
}

func TestNewManager_FailsWhenRootIsAFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := NewManager(filepath.Join(file, "ws"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
