package main

import (
	"github.com/nisimpson/dynacrud"
	"github.com/spf13/cobra"
)

var (
	searchWhere  []string
	searchLimit  int
	searchCursor string
)

var searchCmd = needsService(&cobra.Command{
	Use:   "search [table]",
	Short: "Search records matching every --where condition",
	Long: `Search returns the records whose fields equal every --where condition.
Without --limit all matching records are returned. With --limit a single page is
returned together with the cursor of the next one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := args[0]
		m, err := lookupModel(table)
		if err != nil {
			return err
		}
		keys, values, err := parseWhere(m, searchWhere)
		if err != nil {
			return err
		}
		filter := make(map[string]any, len(keys))
		for i, k := range keys {
			filter[k] = values[i]
		}

		if searchLimit <= 0 && searchCursor == "" {
			recs, err := service.Search(cmd.Context(), table, dynacrud.Match(filter))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), records(recs))
		}

		page, err := service.SearchPage(cmd.Context(), table, dynacrud.Match(filter), dynacrud.PageOptions{
			Limit:  searchLimit,
			Cursor: searchCursor,
		})
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"records": records(page.Records),
			"cursor":  page.Cursor,
		})
	},
})

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringArrayVarP(&searchWhere, "where", "w", nil, "Equality condition as key=value; repeatable")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Evaluate at most this many items and return one page")
	searchCmd.Flags().StringVar(&searchCursor, "cursor", "", "Cursor returned by a previous page")
}
