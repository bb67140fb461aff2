package language

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-runner/internal/apperror"
)

func TestResolve_EveryLocalLanguageHasRunTemplate(t *testing.T) {
	r := Default()

	for _, id := range r.Known() {
		t.Run(id, func(t *testing.T) {
			d, err := r.Resolve(id)
			require.NoError(t, err)
			assert.Equal(t, id, d.ID)
			assert.NotEmpty(t, d.Extension)
			if d.LocalCapable() {
				assert.NotEmpty(t, d.Run[0], "run template must name a command")
			} else {
				assert.True(t, d.RemoteCapable(), "a language must be runnable somewhere")
			}
		})
	}
}

func TestResolve_NormalizesCaseAndAliases(t *testing.T) {
	r := Default()

	tests := []struct {
		input string
		want  string
	}{
		{"python", "python"},
		{"PYTHON", "python"},
		{"  Python ", "python"},
		{"py", "python"},
		{"JS", "javascript"},
		{"c++", "cpp"},
		{"Golang", "go"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := r.Resolve(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.ID)
		})
	}
}

func TestResolve_UnknownListsAllIDs(t *testing.T) {
	r := Default()

	_, err := r.Resolve("cobol")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUnsupportedLanguage))

	for _, id := range r.Known() {
		assert.Contains(t, err.Error(), id)
	}
}

func TestKnown_IsSorted(t *testing.T) {
	ids := Default().Known()
	assert.True(t, sort.StringsAreSorted(ids))
	assert.Contains(t, ids, "java")
}

func TestList(t *testing.T) {
	r := NewRegistry(
		Descriptor{ID: "Python", DisplayName: "Python", ToolchainVersion: "3.12", Run: []string{"python3"}},
		Descriptor{ID: "bash", DisplayName: "Bash", ToolchainVersion: "5", Run: []string{"bash"}},
	)

	assert.Equal(t, []Info{
		{Name: "bash", DisplayName: "Bash", ToolchainVersion: "5"},
		{Name: "python", DisplayName: "Python", ToolchainVersion: "3.12"},
	}, r.List())
}

func TestCompiledLanguagesCarryBothTemplates(t *testing.T) {
	r := Default()

	for _, id := range []string{"java", "c", "cpp", "go", "rust"} {
		d, err := r.Resolve(id)
		require.NoError(t, err)
		assert.True(t, d.RequiresCompilation(), id)
		assert.NotEmpty(t, d.Run, id)
	}

	py, err := r.Resolve("python")
	require.NoError(t, err)
	assert.False(t, py.RequiresCompilation())
	assert.Empty(t, py.ArtifactPath("/tmp/x/main.py"))
}

func TestExpand(t *testing.T) {
	java, err := Default().Resolve("java")
	require.NoError(t, err)

	p := java.PathsFor("/work/abc", "Foo")
	assert.Equal(t, "/work/abc/Foo.java", p.Source)
	assert.Equal(t, "/work/abc/Foo.class", p.Artifact)

	assert.Equal(t, []string{"javac", "-d", "/work/abc", "/work/abc/Foo.java"}, Expand(java.Compile, p))
	assert.Equal(t, []string{"java", "-cp", "/work/abc", "Foo"}, Expand(java.Run, p))
}

func TestExpand_DoesNotInterpretShellSyntax(t *testing.T) {
	p := Paths{Source: "/w/a b; rm -rf ~.py"}
	got := Expand([]string{"python3", PlaceholderSource}, p)

	require.Len(t, got, 2)
	assert.Equal(t, "/w/a b; rm -rf ~.py", got[1])
}

func TestBinaries_SkipsArtifactPlaceholder(t *testing.T) {
	c, err := Default().Resolve("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"gcc"}, c.Binaries())

	java, err := Default().Resolve("java")
	require.NoError(t, err)
	assert.Equal(t, []string{"javac", "java"}, java.Binaries())
}

func TestForExtension(t *testing.T) {
	r := Default()

	d, ok := r.ForExtension(".RB")
	require.True(t, ok)
	assert.Equal(t, "ruby", d.ID)

	_, ok = r.ForExtension(".cob")
	assert.False(t, ok)
}

func TestTemplates(t *testing.T) {
	r := Default()

	tpl, err := r.Templates("Java")
	require.NoError(t, err)
	assert.Contains(t, tpl["hello"], "public class Main")
	assert.Contains(t, tpl, "input")

	_, err = r.Templates("haskell")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	_, err = r.Templates("cobol")
	assert.True(t, errors.Is(err, apperror.ErrUnsupportedLanguage))
}

func TestTemplates_Keys(t *testing.T) {
	tests := []struct {
		lang string
		want []string
	}{
		{lang: "python", want: []string{"hello", "function", "input"}},
		{lang: "js", want: []string{"hello", "function", "input"}},
		{lang: "go", want: []string{"hello", "input"}},
		{lang: "bash", want: []string{"hello", "input"}},
	}

	r := Default()
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			tpl, err := r.Templates(tt.lang)
			require.NoError(t, err)

			var keys []string
			for k := range tpl {
				keys = append(keys, k)
			}
			assert.ElementsMatch(t, tt.want, keys)
		})
	}

	tpl, err := r.Templates("python")
	require.NoError(t, err)
	assert.Contains(t, tpl["function"], "def greet(name):")
}
