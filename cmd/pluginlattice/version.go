package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of pluginlattice",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("pluginlattice version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
