package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"strand/internal/version"
	"strand/internal/vm"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		mode, _ := cmd.Flags().GetString("color")
		applyColorMode(mode, os.Stdout)

		fmt.Printf("strand %s\n", version.Colored())
		if version.GitCommit != "" {
			fmt.Printf("commit:  %s\n", version.GitCommit)
		}
		if version.BuildDate != "" {
			fmt.Printf("built:   %s\n", version.BuildDate)
		}
		asserts := "off"
		if vm.DebugEnabled() {
			asserts = "on"
		}
		fmt.Printf("asserts: %s\n", asserts)
	},
}
