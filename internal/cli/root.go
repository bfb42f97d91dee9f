package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hvtools/regtest/internal/logging"
)

// Global flag values accessible to all subcommands.
var (
	flagVerbose bool
	flagQuiet   bool
	flagConfig  string
	flagNoColor bool
)

// runFlags holds parsed flag values for the root (run) command.
type runFlags struct {
	// Jobs bounds worker concurrency; 0 selects the default.
	Jobs int
	// MaxDiffLines caps each rendered diff; 0 keeps the configured value.
	MaxDiffLines int
	// Interpreter overrides the configured command interpreter.
	Interpreter string
	// KeepOutputs retains captured outputs of passing tests.
	KeepOutputs bool
}

var flagRun runFlags

// errTestsFailed signals that at least one test failed. The failure is
// already visible in the report, so Execute translates it into the exit
// code without printing another diagnostic.
var errTestsFailed = errors.New("one or more tests failed")

// rootCmd is the base command: the harness run itself.
var rootCmd = &cobra.Command{
	Use:   "regtest PROGRAM [TEST...]",
	Short: "Parallel regression-test harness with golden-output diffing",
	Long: `regtest runs shell-driven .test scripts against a program and compares
their captured output to golden .exp files.

Comparison normalizes whitespace and case on both sides, drops blank lines,
and honors the "..." wildcard in expected lines. Tests run in parallel on
nearly all cores; the exit status is non-zero when any test fails.

Each test script is sourced in its own directory by the configured
interpreter with the program under test exposed as $PROGRAM and the test's
name as $TESTNAME.`,
	Example: `  # Run every **/*.test under the current directory
  regtest ../bin/hv

  # Run selected tests with four workers
  regtest ../bin/hv basic.test parser/quotes.test -j 4`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHarness(cmd, args, flagRun)
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Check env vars for flags not explicitly set on the command line.
		if !cmd.Flags().Changed("verbose") && os.Getenv("REGTEST_VERBOSE") != "" {
			flagVerbose = true
		}
		if !cmd.Flags().Changed("quiet") && os.Getenv("REGTEST_QUIET") != "" {
			flagQuiet = true
		}
		if !cmd.Flags().Changed("no-color") && (os.Getenv("NO_COLOR") != "" || os.Getenv("REGTEST_NO_COLOR") != "") {
			flagNoColor = true
		}

		// Initialize logging.
		jsonFormat := os.Getenv("REGTEST_LOG_FORMAT") == "json"
		logging.Setup(flagVerbose, flagQuiet, jsonFormat)

		// Handle --no-color: disable colored output.
		if flagNoColor {
			lipgloss.SetColorProfile(termenv.Ascii)
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose (debug) output (env: REGTEST_VERBOSE)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress all output except errors and the report (env: REGTEST_QUIET)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to regtest.toml config file")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output (env: REGTEST_NO_COLOR, NO_COLOR)")

	addRunFlags(rootCmd.Flags(), &flagRun)
}

// addRunFlags registers the run-specific flags on fs.
func addRunFlags(fs *pflag.FlagSet, flags *runFlags) {
	fs.IntVarP(&flags.Jobs, "jobs", "j", 0, "Number of parallel workers (default: all cores minus one)")
	fs.IntVar(&flags.MaxDiffLines, "max-diff-lines", 0, "Maximum rendered diff lines per failing test")
	fs.StringVar(&flags.Interpreter, "interpreter", "", `Command interpreter sourcing each test script (default "sh")`)
	fs.BoolVar(&flags.KeepOutputs, "keep-outputs", false, "Keep captured outputs of passing tests and the output directory")
}

// Execute runs the root command and returns the exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errTestsFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		return 1
	}
	return 0
}
