package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/sakif/code-runner/internal/executor"
	"github.com/sakif/code-runner/internal/language"
)

// version is reported to MCP clients.
var version = "dev"

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the engine as MCP tools over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing:

  execute_code     run a program and return the normalized result
  list_languages   list the supported languages

Logs go to stderr; stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, cfg, err := buildEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			server := newMCPServer(engine, cfg.Strategy, newLogger(cmd))
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}

// engineService is what the MCP tools need from the engine.
type engineService interface {
	Execute(ctx context.Context, req executor.ExecutionRequest, strategy executor.Strategy) (*executor.ExecutionResult, error)
	Languages() []language.Info
}

type executeInput struct {
	Code     string `json:"code" jsonschema:"the complete program source"`
	Language string `json:"language" jsonschema:"language id or alias, e.g. python, js, java, cpp"`
	Stdin    string `json:"stdin,omitempty" jsonschema:"standard input passed to the program"`
	Backend  string `json:"backend,omitempty" jsonschema:"auto, local or remote"`
}

type languagesOutput struct {
	Languages []language.Info `json:"languages"`
}

func newMCPServer(svc engineService, strategy executor.Strategy, logger *slog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "coderun", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: "execute_code",
		Description: "Compile (if needed) and run a program. Compile errors, runtime errors and timeouts " +
			"are reported in the result with success=false, not as tool errors.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in executeInput) (*mcp.CallToolResult, executor.ExecutionResult, error) {
		s := strategy
		if in.Backend != "" {
			parsed, err := executor.ParseStrategy(in.Backend)
			if err != nil {
				return nil, executor.ExecutionResult{}, err
			}
			s = parsed
		}

		res, err := svc.Execute(ctx, executor.ExecutionRequest{Code: in.Code, Language: in.Language, Stdin: in.Stdin}, s)
		if err != nil {
			logger.Warn("mcp execution rejected", slog.String("language", in.Language), slog.String("error", err.Error()))
			if class := executor.Classify(err); class != executor.ClassNone {
				return nil, executor.ExecutionResult{}, fmt.Errorf("%s: %w", class, err)
			}
			return nil, executor.ExecutionResult{}, err
		}
		return nil, *res, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_languages",
		Description: "List every supported language with its display name and toolchain version.",
	}, func(context.Context, *mcp.CallToolRequest, struct{}) (*mcp.CallToolResult, languagesOutput, error) {
		return nil, languagesOutput{Languages: svc.Languages()}, nil
	})

	return server
}
