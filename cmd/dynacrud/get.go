package main

import (
	"github.com/spf13/cobra"
)

var getCmd = needsService(&cobra.Command{
	Use:   "get [table] [id]",
	Short: "Read a record by its hash key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := lookupModel(args[0])
		if err != nil {
			return err
		}
		id, err := parseValue(m, m.HashKey, args[1])
		if err != nil {
			return err
		}

		rec, err := service.GetByID(cmd.Context(), args[0], id)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), record(rec))
	},
})

func init() {
	rootCmd.AddCommand(getCmd)
}
