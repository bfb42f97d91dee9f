package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hvtools/regtest/internal/config"
	"github.com/hvtools/regtest/internal/executor"
	"github.com/hvtools/regtest/internal/harness"
	"github.com/hvtools/regtest/internal/logging"
	"github.com/hvtools/regtest/internal/suite"
)

// runHarness is the RunE implementation for the root command. It wires up
// configuration, program validation, test discovery, the executor, and the
// scheduler, and maps the outcome onto the process exit code.
func runHarness(cmd *cobra.Command, args []string, flags runFlags) error {
	logger := logging.New("regtest")

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	mergeRunFlags(&cfg.Run, flags)

	program, err := resolveProgram(args[0])
	if err != nil {
		return err
	}

	testPaths, err := resolveTests(args[1:])
	if err != nil {
		return err
	}
	if len(testPaths) == 0 {
		logger.Warn("no test files found")
	}

	outDir, err := os.MkdirTemp("", "regtest-")
	if err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tests := make([]suite.TestCase, 0, len(testPaths))
	for _, p := range testPaths {
		tests = append(tests, suite.New(p, outDir))
	}

	exec := executor.NewRunner(executor.Options{
		Interpreter:  cfg.Run.Interpreter,
		SanitizerEnv: executor.SanitizerEnv(os.Environ()),
		Logger:       logging.New("executor"),
	})
	runner := harness.NewRunner(exec,
		harness.WithJobs(cfg.Run.Jobs),
		harness.WithMaxDiffLines(cfg.Run.MaxDiffLines),
		harness.WithKeepOutputs(cfg.Run.KeepOutputs),
		harness.WithStdout(cmd.OutOrStdout()),
		harness.WithLogger(logging.New("harness")),
	)

	logger.Debug("starting run",
		"program", program,
		"tests", len(tests),
		"jobs", cfg.Run.Jobs,
		"out_dir", outDir,
	)

	summary, _, err := runner.Run(cmd.Context(), program, tests)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), summary.Format())

	// Failed outputs stay on disk for inspection; a fully green run cleans
	// up after itself unless asked not to.
	switch {
	case cfg.Run.KeepOutputs:
		logger.Info("captured outputs kept", "dir", outDir)
	case summary.Failed == 0:
		if err := os.RemoveAll(outDir); err != nil {
			logger.Warn("removing output directory", "dir", outDir, "error", err)
		}
	default:
		logger.Info("failing outputs kept", "dir", outDir)
	}

	if summary.Failed > 0 {
		return errTestsFailed
	}
	return nil
}

// mergeRunFlags applies command-line overrides on top of the configured
// values.
func mergeRunFlags(rc *config.RunConfig, flags runFlags) {
	if flags.Jobs > 0 {
		rc.Jobs = flags.Jobs
	}
	if flags.MaxDiffLines > 0 {
		rc.MaxDiffLines = flags.MaxDiffLines
	}
	if flags.Interpreter != "" {
		rc.Interpreter = flags.Interpreter
	}
	if flags.KeepOutputs {
		rc.KeepOutputs = true
	}
}

// resolveProgram expands, absolutizes, and validates the program under test.
func resolveProgram(arg string) (string, error) {
	program, err := filepath.Abs(suite.ExpandUser(arg))
	if err != nil {
		return "", fmt.Errorf("resolving program path %s: %w", arg, err)
	}
	if resolved, err := filepath.EvalSymlinks(program); err == nil {
		program = resolved
	}
	if !suite.IsExecutable(program) {
		return "", fmt.Errorf("'%s' not found or not executable", program)
	}
	return program, nil
}

// resolveTests validates explicitly given test paths, or discovers every
// **/*.test under the working directory when none were given.
func resolveTests(args []string) ([]string, error) {
	if len(args) == 0 {
		return suite.Discover(".")
	}
	if err := suite.Validate(args); err != nil {
		return nil, err
	}
	return args, nil
}
