package main

import (
	"github.com/spf13/cobra"
)

var writeData string

var createCmd = needsService(&cobra.Command{
	Use:   "create [table]",
	Short: "Create a record from a JSON object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseData(writeData)
		if err != nil {
			return err
		}
		rec, err := service.Create(cmd.Context(), args[0], data)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), record(rec))
	},
})

var updateCmd = needsService(&cobra.Command{
	Use:   "update [table] [id]",
	Short: "Merge a JSON object into an existing record",
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
		data, err := parseData(writeData)
		if err != nil {
			return err
		}

		rec, err := service.GetByID(cmd.Context(), args[0], id)
		if err != nil {
			return err
		}
		rec, err = service.Update(cmd.Context(), rec, data)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), record(rec))
	},
})

func init() {
	for _, cmd := range []*cobra.Command{createCmd, updateCmd} {
		rootCmd.AddCommand(cmd)
		cmd.Flags().StringVarP(&writeData, "data", "d", "", "Record attributes as a JSON object")
		_ = cmd.MarkFlagRequired("data")
	}
}
