package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s (commit %s)\n", BuildVersion, BuildCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
