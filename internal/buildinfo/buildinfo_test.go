package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo_Defaults(t *testing.T) {
	t.Parallel()

	info := GetInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, Commit, info.Commit)
	assert.Equal(t, Date, info.Date)
}

func TestInfo_String(t *testing.T) {
	t.Parallel()

	info := Info{Version: "1.2.3", Commit: "abc1234", Date: "2026-08-01T10:00:00Z"}
	assert.Equal(t, "regtest v1.2.3 (commit: abc1234, built: 2026-08-01T10:00:00Z)", info.String())
}
