package language

import (
	"sort"
	"strings"

	"github.com/sakif/code-runner/internal/apperror"
)

// Info is the public summary of one language, as listed to API callers.
type Info struct {
	Name             string `json:"name"`
	DisplayName      string `json:"displayName"`
	ToolchainVersion string `json:"toolchainVersion"`
}

// Registry maps language identifiers (and their aliases) to descriptors.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	byID    map[string]Descriptor
	aliases map[string]string
	ids     []string
}

// NewRegistry builds a registry from the given descriptors. Later entries
// with the same ID replace earlier ones.
func NewRegistry(descs ...Descriptor) *Registry {
	r := &Registry{
		byID:    make(map[string]Descriptor, len(descs)),
		aliases: make(map[string]string),
	}
	for _, d := range descs {
		id := normalize(d.ID)
		d.ID = id
		r.byID[id] = d
		for _, a := range d.Aliases {
			r.aliases[normalize(a)] = id
		}
	}
	for id := range r.byID {
		r.ids = append(r.ids, id)
	}
	sort.Strings(r.ids)
	return r
}

// Default returns a registry holding the built-in languages.
func Default() *Registry {
	return NewRegistry(Builtin()...)
}

// Resolve looks up a language by identifier or alias, ignoring case and
// surrounding whitespace. Unknown identifiers fail with an
// apperror.ErrUnsupportedLanguage listing every known identifier.
func (r *Registry) Resolve(id string) (Descriptor, error) {
	key := normalize(id)
	if d, ok := r.byID[key]; ok {
		return d, nil
	}
	if canonical, ok := r.aliases[key]; ok {
		return r.byID[canonical], nil
	}
	return Descriptor{}, apperror.UnsupportedLanguage(id, r.Known())
}

// Known returns every canonical identifier, sorted.
func (r *Registry) Known() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Descriptors returns every descriptor ordered by identifier.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.byID[id])
	}
	return out
}

// List returns the public summary of every language, ordered by identifier.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.ids))
	for _, id := range r.ids {
		d := r.byID[id]
		out = append(out, Info{
			Name:             d.ID,
			DisplayName:      d.DisplayName,
			ToolchainVersion: d.ToolchainVersion,
		})
	}
	return out
}

// ForExtension finds the language owning a file extension such as ".py".
func (r *Registry) ForExtension(ext string) (Descriptor, bool) {
	ext = normalize(ext)
	for _, id := range r.ids {
		if d := r.byID[id]; d.Extension == ext {
			return d, true
		}
	}
	return Descriptor{}, false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
