package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run a command script and print the final state",
		Long: `The run command applies every line of a script to a fresh simulator, then
prints the final memory map. Use - to read the script from stdin.

Script lines:
  create <name> <size> [segment=size ...]
  spawn <name> <size> [segment=size ...]
  alloc <id>
  free <id>
  remove <id>
  policy <first|best|worst>
  compact
  reset
  show

Example:
  memsim run scenario.txt --model variable --policy worst
  memsim run - --model dynamic --auto-compact < scenario.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, args[0])
		},
	}
	return cmd
}

func runScript(cmd *cobra.Command, path string) error {
	var in io.Reader = cmd.InOrStdin()
	name := "stdin"

	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "failed to open script")
		}
		defer file.Close()

		in = file
		name = filepath.Base(path)
	}

	s, err := newSessionFromFlags(cmd)
	if err != nil {
		return err
	}

	err = s.run(in, name, false)
	if err != nil {
		return err
	}

	err = s.show()
	if err != nil {
		return err
	}

	if s.failures > 0 {
		return errors.Newf("%d script lines failed", s.failures)
	}

	return nil
}
