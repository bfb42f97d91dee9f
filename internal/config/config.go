package config

import (
	"github.com/hvtools/regtest/internal/diff"
	"github.com/hvtools/regtest/internal/executor"
)

// Config is the top-level configuration structure mapping to regtest.toml.
type Config struct {
	Run RunConfig `toml:"run"`
}

// RunConfig maps to the [run] section in regtest.toml.
type RunConfig struct {
	// Jobs bounds worker concurrency. Zero selects the default
	// (all cores minus one).
	Jobs int `toml:"jobs"`
	// MaxDiffLines caps each rendered diff.
	MaxDiffLines int `toml:"max_diff_lines"`
	// Interpreter sources each test script.
	Interpreter string `toml:"interpreter"`
	// KeepOutputs retains captured outputs of passing tests.
	KeepOutputs bool `toml:"keep_outputs"`
}

// Default returns the built-in configuration used when no regtest.toml is
// found.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Jobs:         0,
			MaxDiffLines: diff.DefaultMaxLines,
			Interpreter:  executor.DefaultInterpreter,
		},
	}
}
