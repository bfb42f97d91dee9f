package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

// resetDefaults restores the default logger to a known state between tests.
// This is necessary because charmbracelet/log uses global state.
func resetDefaults(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		log.SetLevel(log.InfoLevel)
		log.SetOutput(os.Stderr)
		log.SetFormatter(log.TextFormatter)
	})
}

func TestSetup_DefaultLevel(t *testing.T) {
	resetDefaults(t)

	Setup(false, false, false)
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}

func TestSetup_Verbose(t *testing.T) {
	resetDefaults(t)

	Setup(true, false, false)
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}

func TestSetup_QuietWinsOverVerbose(t *testing.T) {
	resetDefaults(t)

	Setup(true, true, false)
	assert.Equal(t, log.ErrorLevel, log.GetLevel())
}

func TestNew_PrefixAppearsInOutput(t *testing.T) {
	resetDefaults(t)

	Setup(false, false, false)
	var buf bytes.Buffer
	SetOutput(&buf)

	logger := New("harness")
	logger.Info("collecting results")

	out := buf.String()
	assert.Contains(t, out, "harness")
	assert.Contains(t, out, "collecting results")
}

func TestSetup_JSONFormat(t *testing.T) {
	resetDefaults(t)

	Setup(false, false, true)
	var buf bytes.Buffer
	SetOutput(&buf)

	New("diff").Info("rendered", "lines", 12)

	out := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(out, "{"), "expected NDJSON, got %q", out)
	assert.Contains(t, out, `"msg":"rendered"`)
}
