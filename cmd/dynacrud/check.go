package main

import (
	"github.com/nisimpson/dynacrud"
	"github.com/spf13/cobra"
)

var checkWhere []string

var checkCmd = needsService(&cobra.Command{
	Use:   "check [table]",
	Short: "Report whether a record with the given field values exists",
	Long: `Check runs a duplicate validation. It prints {"duplicate": false} when no
record matches every --where condition and exits with an error when one does.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := lookupModel(args[0])
		if err != nil {
			return err
		}
		keys, values, err := parseWhere(m, checkWhere)
		if err != nil {
			return err
		}

		err = service.ValidateDuplicate(cmd.Context(), args[0], keys, values)
		if dynacrud.IsConflict(err) {
			if werr := writeJSON(cmd.OutOrStdout(), map[string]bool{"duplicate": true}); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), map[string]bool{"duplicate": false})
	},
})

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringArrayVarP(&checkWhere, "where", "w", nil, "Equality condition as key=value; repeatable")
	_ = checkCmd.MarkFlagRequired("where")
}
