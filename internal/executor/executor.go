// Package executor runs one test script as a subprocess and captures its
// combined output into the test's artifact file.
//
// The runner protocol is a fixed interpreter invocation contract rather than
// an assumption about any particular shell: the configured interpreter
// (default "sh") is invoked as
//
//	<interpreter> -c ". ./<testfile>"
//
// with the test file's directory as working directory, so a test script is
// sourced in its own directory context. The environment exposed to the
// script is documented on BuildEnv.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/hvtools/regtest/internal/suite"
)

// DefaultInterpreter is the command used to source test scripts when no
// interpreter is configured.
const DefaultInterpreter = "sh"

// execLogger is the minimal logging interface required by Runner.
type execLogger interface {
	Debug(msg interface{}, keyvals ...interface{})
}

// Options configures a Runner.
type Options struct {
	// Interpreter is the command interpreter sourcing each test script.
	// Empty selects DefaultInterpreter.
	Interpreter string
	// SanitizerEnv holds KEY=VALUE sanitizer configuration entries captured
	// from the parent process, passed to every test explicitly so that env
	// construction stays a pure function (see BuildEnv).
	SanitizerEnv []string
	// Logger receives debug output. Nil discards it.
	Logger execLogger
}

// Runner executes test scripts. It is safe for concurrent use: Run touches
// no shared mutable state beyond the per-test artifact file, whose name is
// unique per test.
type Runner struct {
	interpreter string
	sanitizer   []string
	logger      execLogger
}

// NewRunner creates a Runner from opts, applying defaults.
func NewRunner(opts Options) *Runner {
	interp := opts.Interpreter
	if interp == "" {
		interp = DefaultInterpreter
	}
	return &Runner{
		interpreter: interp,
		sanitizer:   opts.SanitizerEnv,
		logger:      opts.Logger,
	}
}

// SanitizerEnv filters environ down to the sanitizer runtime configuration
// variables (ASAN_OPTIONS, UBSAN_OPTIONS, and friends) that tests of
// sanitizer-built programs depend on.
func SanitizerEnv(environ []string) []string {
	var out []string
	for _, kv := range environ {
		key, _, ok := strings.Cut(kv, "=")
		if ok && strings.HasSuffix(key, "SAN_OPTIONS") {
			out = append(out, kv)
		}
	}
	return out
}

// BuildEnv constructs the subprocess environment for one test. It is a pure
// function of its inputs: the base environment is passed through (search
// paths included), then the contract variables are appended:
//
//	PROGRAM   absolute path of the program under test
//	TESTNAME  test file name without the ".test" suffix
//	LC_ALL=C  byte-ordering-stable collation, so sorted output is portable
//
// followed by the explicit sanitizer entries. Later entries win on
// duplicate keys, so the contract variables override any base values.
func BuildEnv(base []string, programPath, testName string, sanitizer []string) []string {
	env := make([]string, 0, len(base)+3+len(sanitizer))
	env = append(env, base...)
	env = append(env,
		"PROGRAM="+programPath,
		"TESTNAME="+testName,
		"LC_ALL=C",
	)
	env = append(env, sanitizer...)
	return env
}

// Run sources tc's script and writes its combined stdout/stderr to
// tc.OutputPath, xz-compressed when the test case is compression-marked.
// It returns the subprocess's elapsed wall-clock time.
//
// A non-zero exit status is not an error: the script's output is content to
// be diffed regardless of how the script exited. Only launch failures and
// artifact write failures are reported as errors.
func (r *Runner) Run(ctx context.Context, programPath string, tc suite.TestCase) (time.Duration, error) {
	dir := filepath.Dir(tc.Path)
	base := filepath.Base(tc.Path)

	cmd := exec.CommandContext(ctx, r.interpreter, "-c", ". ./"+base)
	cmd.Dir = dir
	cmd.Env = BuildEnv(os.Environ(), programPath, tc.Name, r.sanitizer)

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	if r.logger != nil {
		r.logger.Debug("running test",
			"path", tc.Path,
			"interpreter", r.interpreter,
			"work_dir", dir,
			"output", tc.OutputPath,
		)
	}

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return elapsed, fmt.Errorf("launching %s: %w", tc.Path, err)
		}
		if r.logger != nil {
			r.logger.Debug("test exited non-zero", "path", tc.Path, "exit_code", exitErr.ExitCode())
		}
	}

	if err := writeArtifact(tc.OutputPath, combined.Bytes(), tc.Compressed); err != nil {
		return elapsed, err
	}
	return elapsed, nil
}

// writeArtifact writes data to path atomically: the bytes go to a fresh
// temporary file in the destination directory which is renamed into place,
// so a partially written artifact is never observed under its final name.
func writeArtifact(path string, data []byte, compressed bool) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating output file for %s: %w", path, err)
	}

	err = writeBody(tmp, data, compressed)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("finalizing %s: %w", path, err)
	}
	return nil
}

// writeBody writes data to w, through an xz container when compressed.
func writeBody(w io.Writer, data []byte, compressed bool) error {
	if !compressed {
		_, err := w.Write(data)
		return err
	}
	xw, err := xz.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := xw.Write(data); err != nil {
		_ = xw.Close()
		return err
	}
	return xw.Close()
}
