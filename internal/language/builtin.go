package language

// Builtin returns the descriptors shipped with the engine.
//
// Languages with a Run template can execute on a local backend. The rest are
// only reachable through a remote backend; they are listed so the registry
// stays identical whichever backend ends up serving a request.
func Builtin() []Descriptor {
	return []Descriptor{
		{
			ID:               "python",
			DisplayName:      "Python",
			Extension:        ".py",
			Run:              []string{"python3", "-u", PlaceholderSource},
			ToolchainVersion: "3.12",
			Aliases:          []string{"py", "python3"},
			Remote:           RemoteRuntime{Language: "python", Version: "3.10.0"},
		},
		{
			ID:               "javascript",
			DisplayName:      "JavaScript",
			Extension:        ".js",
			Run:              []string{"node", PlaceholderSource},
			ToolchainVersion: "20",
			Aliases:          []string{"js", "node", "nodejs"},
			Remote:           RemoteRuntime{Language: "javascript", Version: "18.15.0"},
		},
		{
			ID:                "java",
			DisplayName:       "Java",
			Extension:         ".java",
			Compile:           []string{"javac", "-d", PlaceholderDir, PlaceholderSource},
			Run:               []string{"java", "-cp", PlaceholderDir, PlaceholderName},
			ToolchainVersion:  "21",
			NamedAfterType:    true,
			DefaultName:       "Main",
			ArtifactExtension: ".class",
			Remote:            RemoteRuntime{Language: "java", Version: "15.0.2"},
		},
		{
			ID:               "c",
			DisplayName:      "C",
			Extension:        ".c",
			Compile:          []string{"gcc", "-O2", "-o", PlaceholderArtifact, PlaceholderSource, "-lm"},
			Run:              []string{PlaceholderArtifact},
			ToolchainVersion: "gcc 13",
			Remote:           RemoteRuntime{Language: "c", Version: "10.2.0"},
		},
		{
			ID:               "cpp",
			DisplayName:      "C++",
			Extension:        ".cpp",
			Compile:          []string{"g++", "-O2", "-std=c++17", "-o", PlaceholderArtifact, PlaceholderSource},
			Run:              []string{PlaceholderArtifact},
			ToolchainVersion: "g++ 13",
			Aliases:          []string{"c++", "cxx"},
			Remote:           RemoteRuntime{Language: "c++", Version: "10.2.0"},
		},
		{
			ID:               "go",
			DisplayName:      "Go",
			Extension:        ".go",
			Compile:          []string{"go", "build", "-o", PlaceholderArtifact, PlaceholderSource},
			Run:              []string{PlaceholderArtifact},
			ToolchainVersion: "1.25",
			Aliases:          []string{"golang"},
			Remote:           RemoteRuntime{Language: "go", Version: "1.16.2"},
		},
		{
			ID:               "rust",
			DisplayName:      "Rust",
			Extension:        ".rs",
			Compile:          []string{"rustc", "-O", "-o", PlaceholderArtifact, PlaceholderSource},
			Run:              []string{PlaceholderArtifact},
			ToolchainVersion: "1.77",
			Aliases:          []string{"rs"},
			Remote:           RemoteRuntime{Language: "rust", Version: "1.68.2"},
		},
		{
			ID:               "ruby",
			DisplayName:      "Ruby",
			Extension:        ".rb",
			Run:              []string{"ruby", PlaceholderSource},
			ToolchainVersion: "3.3",
			Aliases:          []string{"rb"},
			Remote:           RemoteRuntime{Language: "ruby", Version: "3.0.1"},
		},
		{
			ID:               "php",
			DisplayName:      "PHP",
			Extension:        ".php",
			Run:              []string{"php", PlaceholderSource},
			ToolchainVersion: "8.3",
			Remote:           RemoteRuntime{Language: "php", Version: "8.2.3"},
		},
		{
			ID:               "bash",
			DisplayName:      "Bash",
			Extension:        ".sh",
			Run:              []string{"bash", PlaceholderSource},
			ToolchainVersion: "5",
			Aliases:          []string{"sh", "shell"},
			Remote:           RemoteRuntime{Language: "bash", Version: "5.2.0"},
		},

		// Remote only.
		{ID: "typescript", DisplayName: "TypeScript", Extension: ".ts", ToolchainVersion: "5.0.3", Aliases: []string{"ts"},
			Remote: RemoteRuntime{Language: "typescript", Version: "5.0.3"}},
		{ID: "csharp", DisplayName: "C#", Extension: ".cs", DefaultName: "Main", ToolchainVersion: "6.12.0", Aliases: []string{"c#", "cs"},
			Remote: RemoteRuntime{Language: "csharp", Version: "6.12.0"}},
		{ID: "kotlin", DisplayName: "Kotlin", Extension: ".kt", DefaultName: "Main", ToolchainVersion: "1.8.20", Aliases: []string{"kt"},
			Remote: RemoteRuntime{Language: "kotlin", Version: "1.8.20"}},
		{ID: "swift", DisplayName: "Swift", Extension: ".swift", ToolchainVersion: "5.3.3",
			Remote: RemoteRuntime{Language: "swift", Version: "5.3.3"}},
		{ID: "scala", DisplayName: "Scala", Extension: ".scala", DefaultName: "Main", ToolchainVersion: "3.2.2",
			Remote: RemoteRuntime{Language: "scala", Version: "3.2.2"}},
		{ID: "perl", DisplayName: "Perl", Extension: ".pl", ToolchainVersion: "5.36.0",
			Remote: RemoteRuntime{Language: "perl", Version: "5.36.0"}},
		{ID: "lua", DisplayName: "Lua", Extension: ".lua", ToolchainVersion: "5.4.4",
			Remote: RemoteRuntime{Language: "lua", Version: "5.4.4"}},
		{ID: "r", DisplayName: "R", Extension: ".r", ToolchainVersion: "4.1.1",
			Remote: RemoteRuntime{Language: "r", Version: "4.1.1"}},
		{ID: "dart", DisplayName: "Dart", Extension: ".dart", ToolchainVersion: "2.19.6",
			Remote: RemoteRuntime{Language: "dart", Version: "2.19.6"}},
		{ID: "elixir", DisplayName: "Elixir", Extension: ".exs", ToolchainVersion: "1.11.3",
			Remote: RemoteRuntime{Language: "elixir", Version: "1.11.3"}},
		{ID: "haskell", DisplayName: "Haskell", Extension: ".hs", ToolchainVersion: "9.0.1", Aliases: []string{"hs"},
			Remote: RemoteRuntime{Language: "haskell", Version: "9.0.1"}},
	}
}
