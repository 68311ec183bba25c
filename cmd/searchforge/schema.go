package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"searchforge/internal/adapter/tool"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the tavily_search tool schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The schemas are static; a backend is never contacted.
			st, err := tool.NewSearchTool(tool.NewSearchAdapter(nil, 0, nil, nil), nil)
			if err != nil {
				return err
			}
			out := struct {
				Name        string          `json:"name"`
				Description string          `json:"description"`
				Parameters  json.RawMessage `json:"parameters"`
				Output      json.RawMessage `json:"output"`
			}{st.Name(), st.Description(), st.Schema().Parameters, st.OutputSchema()}

			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, string(data))
			return err
		},
	}
}
