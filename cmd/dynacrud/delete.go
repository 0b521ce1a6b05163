package main

import (
	"github.com/spf13/cobra"
)

var deleteCmd = needsService(&cobra.Command{
	Use:   "delete [table] [id]",
	Short: "Delete a record and print its last state",
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
		rec, err = service.Delete(cmd.Context(), rec)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), record(rec))
	},
})

func init() {
	rootCmd.AddCommand(deleteCmd)
}
