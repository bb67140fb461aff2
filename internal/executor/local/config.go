package local

import (
	"time"
)

// Config holds the limits applied to every host process.
type Config struct {
	// Timeout is the wall-clock bound of the run step.
	Timeout time.Duration
	// CompileTimeout is the wall-clock bound of the compile step.
	CompileTimeout time.Duration
	// MaxOutputBytes caps stdout and stderr independently. 0 disables the cap.
	MaxOutputBytes int64
	// MaxFileBytes caps the size of any file the process writes (RLIMIT_FSIZE).
	MaxFileBytes int64
	// MemoryLimitBytes caps the address space (RLIMIT_AS). 0 disables the cap;
	// JVMs and V8 reserve far more address space than they use.
	MemoryLimitBytes int64
	// KillGrace bounds how long output pipes may stay open after the process
	// group was killed.
	KillGrace time.Duration
	// GoCacheDir is the GOCACHE shared by every Go compile. It must live
	// outside the workspace root's token dirs, which are removed after each
	// run; without it every submission rebuilds the standard library.
	GoCacheDir string
	// Env is appended to the minimal environment given to every process,
	// e.g. JAVA_TOOL_OPTIONS=-Xss8m.
	Env []string
}

// DefaultConfig provides sensible defaults for a shared host.
func DefaultConfig() Config {
	return Config{
		Timeout:        10 * time.Second,
		CompileTimeout: 20 * time.Second,
		MaxOutputBytes: 1 << 20,
		MaxFileBytes:   16 << 20,
		KillGrace:      500 * time.Millisecond,
	}
}
