package workspace

import (
	"regexp"

	"github.com/sakif/code-runner/internal/language"
)

// NameKind tells where a source file name came from.
type NameKind int

const (
	// NameDefault means the descriptor's fixed stem was used.
	NameDefault NameKind = iota
	// NameParsed means the stem was read from the declared public type.
	NameParsed
)

func (k NameKind) String() string {
	if k == NameParsed {
		return "parsed"
	}
	return "default"
}

// Name is the file stem chosen for a submission, tagged with its origin.
type Name struct {
	Value string
	Kind  NameKind
}

var (
	lineComment  = regexp.MustCompile(`//[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	publicType   = regexp.MustCompile(
		`\bpublic\s+(?:(?:final|abstract|sealed|non-sealed|strictfp|static)\s+)*(?:class|interface|enum|record)\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
)

// ParseDeclaredType scans source for the first top-level public type
// declaration. It is a best-effort text scan, not a parser: comments are
// ignored but a declaration inside a string literal would still match.
func ParseDeclaredType(code string) (string, bool) {
	stripped := blockComment.ReplaceAllString(code, "")
	stripped = lineComment.ReplaceAllString(stripped, "")
	m := publicType.FindStringSubmatch(stripped)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// DeclaredName picks the file stem for code written in the given language.
// Only toolchains that tie file names to type names are scanned; everything
// else gets the descriptor's default stem.
func DeclaredName(code string, desc language.Descriptor) Name {
	if desc.NamedAfterType {
		if name, ok := ParseDeclaredType(code); ok {
			return Name{Value: name, Kind: NameParsed}
		}
	}
	return Name{Value: desc.Stem(), Kind: NameDefault}
}
