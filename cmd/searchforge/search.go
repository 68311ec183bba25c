package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"searchforge/internal/adapter/tool"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		maxResults int
		async      bool
		format     string
	)

	cmd := &cobra.Command{
		Use:   "search <query> [query...]",
		Short: "Search one or more queries",
		Long: `Search every query and print the combined results in query order.

Results missing a title, url, content or query are dropped. A non-200
response for any query fails the whole command.`,
		Example: `  searchforge search "golang generics" "go iterators" --max-results 5
  searchforge search "rust async" --format text`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if format != "json" && format != "text" {
				return fmt.Errorf("invalid --format %q (want: json, text)", format)
			}
			if cmd.Flags().Changed("max-results") && maxResults <= 0 {
				return fmt.Errorf("--max-results must be > 0")
			}
			return nil
		},
		RunE: a.withSetup(func(cmd *cobra.Command, args []string) error {
			_, adapter, err := a.newRegistry()
			if err != nil {
				return err
			}

			var opts []tool.SearchOption
			if cmd.Flags().Changed("max-results") {
				opts = append(opts, tool.WithMaxResults(maxResults))
			}

			ctx := cmd.Context()
			var res *tool.SearchResults
			if async {
				res, err = adapter.SearchAsync(ctx, args, opts...).Wait(ctx)
			} else {
				res, err = adapter.Search(ctx, args, opts...)
			}
			if err != nil {
				return err
			}

			if format == "text" {
				_, err = fmt.Fprint(a.stdout, renderResults(res))
				return err
			}
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}),
	}

	cmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "cap on combined results (default: configured max_results)")
	cmd.Flags().BoolVar(&async, "async", false, "run the search through the non-blocking API")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or text")
	return cmd
}
