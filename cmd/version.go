package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the acasci version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
