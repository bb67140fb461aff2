package executor_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-runner/internal/apperror"
	"github.com/sakif/code-runner/internal/executor"
	"github.com/sakif/code-runner/internal/language"
	"github.com/sakif/code-runner/internal/workspace"
)

// fakeRunner echoes the staged source back as stdout, or misbehaves on
// demand so the engine's cleanup guarantees can be exercised.
type fakeRunner struct {
	supported bool
	err       error
	panicMsg  string
	outcome   *executor.RawOutcome

	mu   sync.Mutex
	seen []*workspace.Workspace
}

func (f *fakeRunner) Name() string                      { return "fake" }
func (f *fakeRunner) Supports(language.Descriptor) bool { return f.supported }
func (f *fakeRunner) CheckAvailability(context.Context) executor.Availability {
	return executor.Availability{Available: true, Detail: "fake"}
}

func (f *fakeRunner) Run(_ context.Context, _ language.Descriptor, ws *workspace.Workspace) (*executor.RawOutcome, error) {
	f.mu.Lock()
	f.seen = append(f.seen, ws)
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.outcome != nil {
		return f.outcome, nil
	}
	src, err := os.ReadFile(ws.SourcePath)
	if err != nil {
		return nil, err
	}
	return &executor.RawOutcome{Stage: executor.StageRun, Stdout: string(src), Elapsed: time.Millisecond}, nil
}

func newEngine(t *testing.T, runner executor.Runner) (*executor.Engine, *workspace.Manager) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ws, err := workspace.NewManager(filepath.Join(t.TempDir(), "ws"), logger)
	require.NoError(t, err)
	return executor.NewEngine(language.Default(), ws, runner, logger), ws
}

func assertNoResidue(t *testing.T, m *workspace.Manager) {
	t.Helper()
	entries, err := os.ReadDir(m.Root())
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace root should be empty")
}

func TestEngine_Execute(t *testing.T) {
	runner := &fakeRunner{supported: true}
	eng, m := newEngine(t, runner)

	res, err := eng.Execute(context.Background(), executor.ExecutionRequest{
		Code:     "print(1+1)",
		Language: "Python",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "print(1+1)", res.Output)
	assert.Equal(t, "python", res.Language)
	assert.False(t, res.Online)
	assertNoResidue(t, m)
}

func TestEngine_UnsupportedLanguage(t *testing.T) {
	eng, _ := newEngine(t, &fakeRunner{supported: true})

	_, err := eng.Execute(context.Background(), executor.ExecutionRequest{Code: "x", Language: "cobol"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUnsupportedLanguage))
	assert.Contains(t, err.Error(), "python")
}

func TestEngine_RemoteOnlyLanguageIsUnavailable(t *testing.T) {
	eng, _ := newEngine(t, &fakeRunner{supported: true})

	_, err := eng.Execute(context.Background(), executor.ExecutionRequest{Code: "x", Language: "haskell"})
	assert.True(t, errors.Is(err, apperror.ErrUnavailable))
}

func TestEngine_DisposesWhenRunnerFails(t *testing.T) {
	runner := &fakeRunner{supported: true, err: errors.New("toolchain vanished")}
	eng, m := newEngine(t, runner)

	_, err := eng.Execute(context.Background(), executor.ExecutionRequest{Code: "x", Language: "python"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "toolchain vanished")

	require.Len(t, runner.seen, 1)
	assert.NoFileExists(t, runner.seen[0].SourcePath)
	assertNoResidue(t, m)
}

func TestEngine_DisposesWhenRunnerPanics(t *testing.T) {
	runner := &fakeRunner{supported: true, panicMsg: "injected fault"}
	eng, m := newEngine(t, runner)

	assert.PanicsWithValue(t, "injected fault", func() {
		_, _ = eng.Execute(context.Background(), executor.ExecutionRequest{Code: "x", Language: "java"})
	})
	assertNoResidue(t, m)
}

func TestEngine_TimeoutResultIsCleanedUp(t *testing.T) {
	runner := &fakeRunner{supported: true, outcome: &executor.RawOutcome{
		Stage:    executor.StageRun,
		Stdout:   "partial",
		TimedOut: true,
		Limit:    2 * time.Second,
		Elapsed:  2 * time.Second,
	}}
	eng, m := newEngine(t, runner)

	res, err := eng.Execute(context.Background(), executor.ExecutionRequest{Code: "while(true){}", Language: "javascript"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, executor.ClassTimeout, res.Classification)
	assert.Equal(t, "partial", res.Output)
	assert.NotEmpty(t, res.Error)
	assertNoResidue(t, m)
}

func TestEngine_ConcurrentRequestsDoNotCrossContaminate(t *testing.T) {
	eng, m := newEngine(t, &fakeRunner{supported: true})
	const n = 20

	var wg sync.WaitGroup
	results := make([]*executor.ExecutionResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = eng.Execute(context.Background(), executor.ExecutionRequest{
				Code:     fmt.Sprintf("public class Main { /* sentinel-%d */ }", i),
				Language: "java",
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		sentinel := fmt.Sprintf("sentinel-%d ", i)
		assert.True(t, strings.Contains(results[i].Output, sentinel), "result %d = %q", i, results[i].Output)
		for j := 0; j < n; j++ {
			if j != i {
				assert.NotContains(t, results[i].Output, fmt.Sprintf("sentinel-%d ", j))
			}
		}
	}
	assertNoResidue(t, m)
}
