package remote

// Wire types of the Piston v2 execution API.

type pistonFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type pistonRequest struct {
	Language           string       `json:"language"`
	Version            string       `json:"version"`
	Files              []pistonFile `json:"files"`
	Stdin              string       `json:"stdin"`
	Args               []string     `json:"args"`
	CompileTimeout     int64        `json:"compile_timeout"`
	RunTimeout         int64        `json:"run_timeout"`
	CompileMemoryLimit int64        `json:"compile_memory_limit"`
	RunMemoryLimit     int64        `json:"run_memory_limit"`
}

// pistonStage is the outcome of the compile or run stage. Code is null when
// the process was killed by a signal.
type pistonStage struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Output string `json:"output"`
	Code   *int   `json:"code"`
	Signal string `json:"signal"`
	// Status is set by newer Piston versions, "TO" meaning timed out.
	Status string `json:"status"`
}

type pistonResponse struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Compile  *pistonStage `json:"compile"`
	Run      *pistonStage `json:"run"`
	Message  string       `json:"message"`
}

type pistonRuntime struct {
	Language string   `json:"language"`
	Version  string   `json:"version"`
	Aliases  []string `json:"aliases"`
}

func (s *pistonStage) timedOut() bool {
	return s.Status == "TO" || (s.Code == nil && s.Signal == "SIGKILL")
}

// exitCode folds a missing code into the shell convention 128+signal.
func (s *pistonStage) exitCode() int {
	if s.Code != nil {
		return *s.Code
	}
	if n, ok := signalNumbers[s.Signal]; ok {
		return 128 + n
	}
	if s.Signal != "" {
		return 1
	}
	return 0
}

var signalNumbers = map[string]int{
	"SIGHUP":  1,
	"SIGINT":  2,
	"SIGQUIT": 3,
	"SIGILL":  4,
	"SIGABRT": 6,
	"SIGFPE":  8,
	"SIGKILL": 9,
	"SIGSEGV": 11,
	"SIGPIPE": 13,
	"SIGTERM": 15,
	"SIGXCPU": 24,
	"SIGXFSZ": 25,
}
