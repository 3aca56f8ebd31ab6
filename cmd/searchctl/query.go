package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/store"
)

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var (
		keywords string
		page     int
		limit    int
		pushdown bool
		table    bool
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Rank documents for a comma-separated keyword list",
		Example: `  searchctl query --keywords db,engine --page 1 --limit 10
  searchctl --driver sqlite --sqlite data/index.db query -k cache --table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withBackend(cmd.Context(), func(b store.Backend) error {
				eng := engine.New(b, engine.Options{
					DefaultLimit: opts.cfg.Search.DefaultLimit,
					MaxLimit:     opts.cfg.Search.MaxLimit,
					Pushdown:     pushdown || opts.cfg.Store.Pushdown,
					Timeout:      opts.cfg.Search.Timeout,
				})
				result, err := eng.Rank(cmd.Context(), parser.Split(keywords), page, limit)
				if err != nil {
					return err
				}
				if table {
					printTable(cmd, result)
					return nil
				}
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling result: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&keywords, "keywords", "k", "", "comma-separated keywords")
	cmd.Flags().IntVarP(&page, "page", "p", engine.DefaultPage, "1-based page number")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "results per page (0 uses the configured default)")
	cmd.Flags().BoolVar(&pushdown, "pushdown", false, "rank inside the database")
	cmd.Flags().BoolVar(&table, "table", false, "print a plain table instead of JSON")
	return cmd
}

func printTable(cmd *cobra.Command, result *engine.ResultPage) {
	if len(result.Results) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No results (total %d).\n", result.Total)
		return
	}
	offset := (result.Page - 1) * result.Limit
	for i, r := range result.Results {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %-60s %8.3f\n", offset+i+1, r.URL, r.Score)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d, %d documents\n", result.Page, result.TotalPages, result.Total)
}
