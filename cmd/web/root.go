package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "quran-web",
		Short:         "Server-rendered Quran reading and learning frontend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("env-file", ".env", "dotenv file with local overrides; empty disables it")
	root.AddCommand(newServeCommand(), newCheckDataCommand())
	return root
}
