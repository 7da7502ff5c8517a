package buildinfo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString_Defaults(t *testing.T) {
	assert.Equal(t, "Build version: N/A\nBuild date: N/A\nBuild commit: N/A", String())
}

func TestString_Injected(t *testing.T) {
	oldV, oldD, oldC := Version, Date, Commit
	t.Cleanup(func() { Version, Date, Commit = oldV, oldD, oldC })

	Version, Date, Commit = "v0.3.0", "2025-01-02", "abc123"
	assert.Contains(t, String(), "Build version: v0.3.0")
	assert.Contains(t, String(), "Build commit: abc123")
}

func TestPrintBuildData(t *testing.T) {
	var buf bytes.Buffer
	PrintBuildData(&buf)
	assert.Equal(t, String()+"\n", buf.String())
}
