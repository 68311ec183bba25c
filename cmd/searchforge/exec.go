package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"searchforge/internal/domain"
)

func newExecCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec",
		Short: "Run one tool call read from stdin",
		Long: `Read a tool call as JSON from stdin, execute it and print the ToolResult.

Input:  {"id": "call_1", "name": "tavily_search", "arguments": {"queries": ["..."]}}
Output: {"tool_call_id": "call_1", "content": "...", "is_error": false}

Tool failures are reported in the result, not through the exit code.`,
		Args: cobra.NoArgs,
		RunE: a.withSetup(func(cmd *cobra.Command, _ []string) error {
			data, err := io.ReadAll(io.LimitReader(a.stdin, 1<<20))
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			var call domain.ToolCall
			if err := json.Unmarshal(data, &call); err != nil {
				return fmt.Errorf("parse tool call: %w", err)
			}
			if call.ID == "" {
				call.ID = "call_" + ulid.Make().String()
			}
			if len(call.Arguments) == 0 {
				call.Arguments = json.RawMessage(`{}`)
			}

			reg, _, err := a.newRegistry()
			if err != nil {
				return err
			}
			res, err := reg.Call(cmd.Context(), call)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}),
	}
}
