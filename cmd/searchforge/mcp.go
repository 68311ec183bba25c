package main

import (
	"github.com/spf13/cobra"

	"searchforge/internal/adapter/mcpserver"
	"searchforge/internal/infra/logger"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the search tool over MCP stdio",
		Args:  cobra.NoArgs,
		PreRun: func(*cobra.Command, []string) {
			a.stdoutReserved = true
		},
		RunE: a.withSetup(func(cmd *cobra.Command, _ []string) error {
			reg, _, err := a.newRegistry()
			if err != nil {
				return err
			}
			srv := mcpserver.New(reg.List(), version, logger.Component(a.logger, "mcp"))
			return srv.ServeStdio(cmd.Context(), a.stdin, a.stdout)
		}),
	}
}
