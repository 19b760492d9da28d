package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newReplCmd())
}

func newReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Read commands interactively from stdin",
		Long: `The repl command reads script lines from stdin one at a time and applies
each as soon as it is entered. Failing commands are reported and the session
continues. Type show to print the memory map.

Example:
  memsim repl --model variable --policy first`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSessionFromFlags(cmd)
			if err != nil {
				return err
			}

			return s.run(cmd.InOrStdin(), "stdin", true)
		},
	}
	return cmd
}
