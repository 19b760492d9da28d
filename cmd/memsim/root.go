package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/memsim/memutils/metadata"
	"github.com/vkngwrapper/memsim/sim"
	"golang.org/x/exp/slog"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	noColor bool
	strict  bool

	// Simulator flags
	configPath      string
	modelName       string
	policyName      string
	autoCompact     bool
	eagerCompaction bool
	noSeeds         bool
)

var rootCmd = &cobra.Command{
	Use:   "memsim",
	Short: "Simulate contiguous memory allocation",
	Long: `memsim simulates how an operating system places processes in contiguous
memory. It supports fixed equal partitions, a variable static partition table
with first, best or worst fit, and dynamic blocks that split on allocation,
merge on free and can be compacted.`,
	Version:      "0.1.0",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every command to stderr")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Only print snapshots and errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print snapshots as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "Stop at the first failing command")

	// Simulator flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML model file")
	rootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "dynamic", "Memory model: fixed, variable or dynamic")
	rootCmd.PersistentFlags().StringVarP(&policyName, "policy", "p", "best", "Fit policy of the variable model: first, best or worst")
	rootCmd.PersistentFlags().BoolVar(&autoCompact, "auto-compact", false, "Compact and retry when no single free block is big enough")
	rootCmd.PersistentFlags().BoolVar(&eagerCompaction, "eager-compaction", false, "Compact after every free that leaves more than one free block")
	rootCmd.PersistentFlags().BoolVar(&noSeeds, "no-seeds", false, "Start with an empty process roster")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	} else if quiet {
		level = slog.LevelError
	}

	return slog.New(slog.HandlerOptions{Level: level}.NewTextHandler(w))
}

// buildOptions combines the model file, when one was given, with the command line. Flags the
// user set explicitly always win.
func buildOptions(cmd *cobra.Command) (sim.CreateOptions, error) {
	var options sim.CreateOptions

	if configPath != "" {
		file, err := loadModelFile(configPath)
		if err != nil {
			return options, err
		}

		options, err = file.options()
		if err != nil {
			return options, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("model") || options.Model == 0 {
		model, err := sim.ParseModel(modelName)
		if err != nil {
			return options, err
		}
		options.Model = model
	}

	if flags.Changed("policy") || options.FitPolicy == 0 {
		policy, err := metadata.ParseFitPolicy(policyName)
		if err != nil {
			return options, err
		}
		options.FitPolicy = policy
	}

	if flags.Changed("auto-compact") {
		options.AutoCompact = autoCompact
	}

	if flags.Changed("eager-compaction") {
		options.EagerCompaction = eagerCompaction
	}

	if noSeeds {
		options.Flags |= sim.CreateWithoutSeeds
	}

	return options, nil
}

func newSessionFromFlags(cmd *cobra.Command) (*session, error) {
	options, err := buildOptions(cmd)
	if err != nil {
		return nil, err
	}

	return newSession(cmd.OutOrStdout(), cmd.ErrOrStderr(), newLogger(cmd.ErrOrStderr()), options, sessionOptions{
		JSON:   jsonOut,
		Strict: strict,
		Quiet:  quiet,
	})
}
