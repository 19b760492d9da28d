package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newSeedCmd())
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Print the initial memory map and process roster of a model",
		Long: `The seed command builds a simulator from the flags and model file and prints
its state before any command runs: the partition table or dynamic layout and
the seed processes.

Example:
  memsim seed --model fixed
  memsim seed --config lab.toml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSessionFromFlags(cmd)
			if err != nil {
				return err
			}

			return s.show()
		},
	}
	return cmd
}
