package main

import (
	"fmt"

	"github.com/nisimpson/dynacrud"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		md, err := dynacrud.LoadMetadata()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", md.ServiceName, md.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
