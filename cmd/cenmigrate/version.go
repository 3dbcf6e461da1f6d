package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enerdata/cenmigrate/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("cenmigrate", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
