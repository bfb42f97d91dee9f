// Package harness fans test execution out across a bounded worker pool,
// collects one result per test, and reports per-test lines plus a run
// summary.
package harness

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/hvtools/regtest/internal/diff"
	"github.com/hvtools/regtest/internal/executor"
	"github.com/hvtools/regtest/internal/suite"
)

// reportWidth is the column the pass/fail tag is aligned to.
const reportWidth = 60

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// Result records the outcome of one test.
type Result struct {
	// Test identifies the test this result belongs to.
	Test suite.TestCase
	// Passed is true when the captured output matched the golden file.
	Passed bool
	// Elapsed is the test subprocess's wall-clock time.
	Elapsed time.Duration
	// Diff holds the rendered diff when the comparison failed.
	Diff string
	// Err holds the execution or decode failure that failed this test, if
	// any. Such failures count as failed tests and never abort the run.
	Err error
}

// Summary aggregates a full run. It is recomputed from the result set, never
// independently mutated.
type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Elapsed time.Duration
}

// Format renders the summary block printed after all tests complete.
func (s Summary) Format() string {
	return fmt.Sprintf(`
==== regression test summary ====

# of total tests : %5d
# of passed tests: %5d
# of failed tests: %5d
total wall time  : %6.2fs
`, s.Total, s.Passed, s.Failed, s.Elapsed.Seconds())
}

// Runner schedules tests on a bounded worker pool. Each worker writes into
// its own result slot; the only shared state is the progress printer, which
// a mutex serializes.
type Runner struct {
	exec         *executor.Runner
	jobs         int
	maxDiffLines int
	keepOutputs  bool
	stdout       io.Writer
	logger       *log.Logger

	mu sync.Mutex
}

// Option is a functional option for configuring a Runner.
type Option func(*Runner)

// WithJobs bounds worker concurrency. Values below 1 keep the default.
func WithJobs(n int) Option {
	return func(r *Runner) {
		if n >= 1 {
			r.jobs = n
		}
	}
}

// WithMaxDiffLines caps each rendered diff at n lines.
func WithMaxDiffLines(n int) Option {
	return func(r *Runner) {
		if n >= 1 {
			r.maxDiffLines = n
		}
	}
}

// WithKeepOutputs retains captured-output artifacts of passing tests, which
// are otherwise removed as soon as the verdict is in.
func WithKeepOutputs(keep bool) Option {
	return func(r *Runner) {
		r.keepOutputs = keep
	}
}

// WithStdout redirects the test report. Defaults to os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(r *Runner) {
		r.stdout = w
	}
}

// WithLogger sets the structured logger on the Runner.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a Runner executing tests via exec.
// Defaults: jobs=DefaultJobs(), maxDiffLines=diff.DefaultMaxLines.
func NewRunner(exec *executor.Runner, opts ...Option) *Runner {
	r := &Runner{
		exec:         exec,
		jobs:         DefaultJobs(),
		maxDiffLines: diff.DefaultMaxLines,
		stdout:       os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultJobs is the useful-default concurrency: nearly all cores, leaving
// one free for the rest of the machine.
func DefaultJobs() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// Run executes all tests against programPath and returns the aggregated
// summary along with one result per test, in submission order.
//
// A per-test line is printed as each test completes; completion order across
// workers is not the submission order. Failure of one test never prevents
// collection of the others: workers record failures in their result slot and
// always return nil to the errgroup.
func (r *Runner) Run(ctx context.Context, programPath string, tests []suite.TestCase) (Summary, []Result, error) {
	start := time.Now()
	results := make([]Result, len(tests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.jobs)

	for i, tc := range tests {
		i, tc := i, tc
		g.Go(func() error {
			results[i] = r.runOne(gctx, programPath, tc)
			r.report(results[i])
			return nil
		})
	}

	// Workers always return nil, so Wait only reports context cancellation.
	if err := g.Wait(); err != nil {
		return Summary{}, results, err
	}

	summary := Summary{Total: len(tests), Elapsed: time.Since(start)}
	for _, res := range results {
		if res.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	return summary, results, nil
}

// runOne runs a single test through the executor and the diff engine.
func (r *Runner) runOne(ctx context.Context, programPath string, tc suite.TestCase) Result {
	res := Result{Test: tc}

	elapsed, err := r.exec.Run(ctx, programPath, tc)
	res.Elapsed = elapsed
	if err != nil {
		res.Err = err
		return res
	}

	cmp, err := diff.Compare(tc.ExpectedPath, tc.OutputPath, diff.WithMaxLines(r.maxDiffLines))
	if err != nil {
		res.Err = err
		return res
	}

	res.Passed = cmp.Equal
	res.Diff = cmp.Diff

	if res.Passed && !r.keepOutputs {
		if err := os.Remove(tc.OutputPath); err != nil && r.logger != nil {
			r.logger.Debug("removing passed-test output", "path", tc.OutputPath, "error", err)
		}
	}
	return res
}

// report prints the per-test line (and diff, on failure) for a completed
// test. The mutex keeps concurrently completing tests from interleaving.
func (r *Runner) report(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.stdout, "%-*s ", reportWidth, "Running "+res.Test.Path+" :")
	secs := res.Elapsed.Seconds()
	if res.Passed {
		fmt.Fprintf(r.stdout, "%s %6.2f\n", passStyle.Render("passed✓"), secs)
		return
	}

	fmt.Fprintf(r.stdout, "%s %6.2f\n", failStyle.Render("FAILED!"), secs)
	if res.Err != nil {
		fmt.Fprintf(r.stdout, "error: %v\n", res.Err)
	}
	if res.Diff != "" {
		fmt.Fprintln(r.stdout, res.Diff)
	}
}
