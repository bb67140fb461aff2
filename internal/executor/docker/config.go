package docker

import (
	"time"

	"github.com/docker/docker/api/types/mount"

	"github.com/sakif/code-runner/internal/language"
)

// goCacheDir is where GoCacheVolume is mounted inside Go containers.
const goCacheDir = "/cache/go-build"

// Config holds the configuration for the container sandbox.
type Config struct {
	// Images maps a language ID to the image its code runs in. Languages
	// without an entry are not supported by this runner.
	Images map[string]string
	// MemoryLimit is the maximum amount of memory a container can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs a container can use.
	CPULimit float64
	// PidsLimit caps the number of processes inside a container (fork bombs).
	PidsLimit int64
	// Timeout bounds the run step.
	Timeout time.Duration
	// CompileTimeout bounds the compile step.
	CompileTimeout time.Duration
	// MaxOutputBytes caps stdout and stderr independently. 0 disables the cap.
	MaxOutputBytes int64
	// PoolSize is the number of pre-warmed containers to maintain per image.
	PoolSize int
	// WorkDir is the tmpfs mount the source is extracted into.
	WorkDir string
	// WorkDirSize is the tmpfs size option, e.g. "64m".
	WorkDirSize string
	// GoCacheVolume names a volume that keeps GOCACHE across containers of
	// the Go image. Empty leaves the cache on the WorkDir tmpfs.
	GoCacheVolume string
}

// DefaultConfig provides sensible defaults for a multi-language sandbox.
func DefaultConfig() Config {
	return Config{
		Images: map[string]string{
			"python":     "python:3.12-alpine",
			"javascript": "node:22-alpine",
			"java":       "eclipse-temurin:21-jdk-alpine",
			"c":          "gcc:14",
			"cpp":        "gcc:14",
			"go":         "golang:1.23-alpine",
			"rust":       "rust:1-slim",
			"ruby":       "ruby:3.3-alpine",
			"php":        "php:8.3-cli-alpine",
			"bash":       "bash:5.2",
		},
		// 256 MB leaves room for a JVM
		MemoryLimit:    256 * 1024 * 1024,
		CPULimit:       0.5,
		PidsLimit:      64,
		Timeout:        10 * time.Second,
		CompileTimeout: 20 * time.Second,
		MaxOutputBytes: 1 << 20,
		PoolSize:       1,
		WorkDir:        "/workspace",
		WorkDirSize:    "64m",
		GoCacheVolume:  "coderunner-gocache",
	}
}

// images returns the distinct images named in Images.
func (c Config) images() []string {
	seen := make(map[string]bool)
	var out []string
	for _, img := range c.Images {
		if img == "" || seen[img] {
			continue
		}
		seen[img] = true
		out = append(out, img)
	}
	return out
}

// mountsFor returns the volumes a container of img gets besides its tmpfs.
func (c Config) mountsFor(img string) []mount.Mount {
	if c.GoCacheVolume == "" || img == "" || img != c.Images["go"] {
		return nil
	}
	return []mount.Mount{{
		Type:   mount.TypeVolume,
		Source: c.GoCacheVolume,
		Target: goCacheDir,
	}}
}

// compileUser is the exec user for desc's compile step. The cache volume
// is created root-owned and 0755, so only the Go compile runs as uid 0 and
// the run step, as the container's unprivileged user, can read it but
// never write entries another submission would link against.
func (c Config) compileUser(desc language.Descriptor) string {
	if c.GoCacheVolume != "" && desc.ID == "go" {
		return "0"
	}
	return ""
}

// goCache is the GOCACHE every exec sees.
func (c Config) goCache() string {
	if c.GoCacheVolume != "" {
		return goCacheDir
	}
	return c.WorkDir + "/.cache/go-build"
}
