// Command coderun runs code from the terminal through the same engine the
// HTTP server uses.
//
//	coderun run hello.py
//	coderun run --lang java --code 'public class A { ... }'
//	echo 'console.log(1+1)' | coderun run --lang js --sandbox embedded
//	coderun languages
//	coderun health --backend remote
//	coderun token --subject grader
//	coderun mcp
//
// Configuration comes from the same environment variables as the server
// (EXEC_TIMEOUT, SANDBOX, PISTON_URL, ...); flags override them.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute runs the CLI and returns the process exit code.
func execute(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	err := root.Execute()
	var exit *exitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exit):
		return exit.code
	default:
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
}

// exitError carries a submission's exit code out of a command without
// printing anything else.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
