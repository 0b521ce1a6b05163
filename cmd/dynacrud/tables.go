package main

import (
	"github.com/spf13/cobra"
)

var tablesCmd = needsService(&cobra.Command{
	Use:   "tables",
	Short: "Provision the configured tables and list them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		type table struct {
			Name      string   `json:"name"`
			TableName string   `json:"tableName"`
			HashKey   string   `json:"hashKey"`
			Fields    []string `json:"fields"`
		}
		out := []table{}
		for _, name := range service.Tables() {
			m, _ := service.Model(name)
			out = append(out, table{Name: name, TableName: m.TableName, HashKey: m.HashKey, Fields: m.Fields()})
		}
		return writeJSON(cmd.OutOrStdout(), out)
	},
})

func init() {
	rootCmd.AddCommand(tablesCmd)
}
