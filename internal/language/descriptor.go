// Package language is the single source of truth for "how to run language X".
//
// A Descriptor carries everything a backend needs: the file extension, the
// compile and run commands, and the runtime name a hosted execution API knows
// the language by. Backends never hard-code toolchains themselves, which keeps
// the local process runner, the container sandbox and the remote adapter
// interchangeable.
//
// COMMANDS ARE ARGUMENT VECTORS:
// Compile and Run are []string, one element per argv entry. Placeholders are
// substituted inside each element by Expand, and the result is handed straight
// to the OS (execve, docker exec). Nothing is ever joined into a shell string,
// so a path or a class name can never be interpreted as shell syntax.
package language

import (
	"path/filepath"
	"strings"
)

// Placeholders understood by Expand.
const (
	PlaceholderSource   = "{source}"
	PlaceholderDir      = "{dir}"
	PlaceholderArtifact = "{artifact}"
	PlaceholderName     = "{name}"
)

// RemoteRuntime names a language the way a hosted execution API does.
type RemoteRuntime struct {
	Language string
	Version  string
}

// Descriptor is static metadata describing how to compile and run one language.
type Descriptor struct {
	ID               string
	DisplayName      string
	Extension        string   // source extension including the dot, e.g. ".py"
	Compile          []string // empty for interpreted languages
	Run              []string // empty for remote-only languages
	ToolchainVersion string
	Aliases          []string

	// NamedAfterType is set for toolchains that require the file name to
	// match the declared public type (javac).
	NamedAfterType bool
	// DefaultName is the file stem used when no declared name applies.
	DefaultName string
	// ArtifactExtension is appended to the extension-less source path to
	// locate the compiled artifact (".class" for Java, "" for native binaries).
	ArtifactExtension string

	Remote RemoteRuntime
}

// RequiresCompilation reports whether the language has a build step.
func (d Descriptor) RequiresCompilation() bool {
	return len(d.Compile) > 0
}

// LocalCapable reports whether the descriptor can be run by a local backend.
func (d Descriptor) LocalCapable() bool {
	return len(d.Run) > 0
}

// RemoteCapable reports whether a hosted execution API knows this language.
func (d Descriptor) RemoteCapable() bool {
	return d.Remote.Language != ""
}

// Stem returns the file stem to use when the source does not dictate one.
func (d Descriptor) Stem() string {
	if d.DefaultName != "" {
		return d.DefaultName
	}
	return "main"
}

// ArtifactPath derives the compiled artifact path from a source path.
// It returns "" for interpreted languages.
func (d Descriptor) ArtifactPath(sourcePath string) string {
	if !d.RequiresCompilation() {
		return ""
	}
	return strings.TrimSuffix(sourcePath, d.Extension) + d.ArtifactExtension
}

// Paths are the concrete values substituted into command templates.
type Paths struct {
	Source   string
	Dir      string
	Artifact string
	Name     string
}

// PathsFor builds Paths for a source file living in dir.
func (d Descriptor) PathsFor(dir, name string) Paths {
	source := filepath.Join(dir, name+d.Extension)
	return Paths{
		Source:   source,
		Dir:      dir,
		Artifact: d.ArtifactPath(source),
		Name:     name,
	}
}

// Expand substitutes placeholders in every element of a command template.
// The template itself is never modified.
func Expand(template []string, p Paths) []string {
	if len(template) == 0 {
		return nil
	}
	r := strings.NewReplacer(
		PlaceholderSource, p.Source,
		PlaceholderDir, p.Dir,
		PlaceholderArtifact, p.Artifact,
		PlaceholderName, p.Name,
	)
	out := make([]string, len(template))
	for i, arg := range template {
		out[i] = r.Replace(arg)
	}
	return out
}

// Binaries returns the toolchain executables named by the compile and run
// templates. Entries that are themselves placeholders (a compiled artifact)
// are skipped.
func (d Descriptor) Binaries() []string {
	var bins []string
	for _, tmpl := range [][]string{d.Compile, d.Run} {
		if len(tmpl) == 0 || strings.Contains(tmpl[0], "{") {
			continue
		}
		bins = append(bins, tmpl[0])
	}
	return bins
}
