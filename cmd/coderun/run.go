package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/code-runner/internal/executor"
	"github.com/sakif/code-runner/internal/language"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Run a program and exit with its exit code",
		Long: `Compile (if needed) and run a program.

Code can be provided via:
  - File argument: coderun run hello.py (language from the extension)
  - Inline flag:   coderun run --lang python --code 'print(1+1)'
  - Stdin:         cat Main.java | coderun run --lang java

The program's stdout and stderr are copied to coderun's. The exit code is
the program's, 124 on timeout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRun,
	}
	cmd.Flags().StringP("lang", "l", "", "Language id or alias (default: detect from file extension)")
	cmd.Flags().StringP("code", "c", "", "Code to execute")
	cmd.Flags().String("stdin", "", "Standard input passed to the program")
	cmd.Flags().Bool("json", false, "Print the full result as JSON")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	code, _ := cmd.Flags().GetString("code")
	lang, _ := cmd.Flags().GetString("lang")
	stdin, _ := cmd.Flags().GetString("stdin")
	asJSON, _ := cmd.Flags().GetBool("json")

	var filename string
	switch {
	case code != "":
	case len(args) > 0:
		filename = args[0]
		data, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		code = string(data)
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading code from stdin: %w", err)
		}
		code = string(data)
	}
	if code == "" {
		return fmt.Errorf("no code given: pass a file, --code, or pipe the program on stdin")
	}

	if lang == "" {
		if filename == "" {
			return fmt.Errorf("--lang is required when the code does not come from a file")
		}
		desc, ok := language.Default().ForExtension(filepath.Ext(filename))
		if !ok {
			return fmt.Errorf("cannot detect the language of %s, use --lang", filename)
		}
		lang = desc.ID
	}

	engine, cfg, err := buildEngine(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, waitBudget(cfg))
	defer cancel()

	res, err := engine.Execute(ctx, executor.ExecutionRequest{Code: code, Language: lang, Stdin: stdin}, cfg.Strategy)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printf(cmd.OutOrStdout(), "%s", res.Output)
		// Error already contains stderr for failed runs.
		if res.Success {
			printf(cmd.ErrOrStderr(), "%s", res.Stderr)
		} else {
			printf(cmd.ErrOrStderr(), "%s\n", res.Error)
		}
	}

	return exitStatus(res)
}

func exitStatus(res *executor.ExecutionResult) error {
	switch {
	case res.Success:
		return nil
	case res.ExitCode > 0 && res.ExitCode < 256:
		return &exitError{code: res.ExitCode}
	default:
		// -1 from a remote transport failure
		return &exitError{code: 1}
	}
}
