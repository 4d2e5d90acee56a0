package buildinfo

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	p := Get()
	assert.NotEmpty(t, p.Version)
	assert.Equal(t, "unknown", p.BuildTime)
	assert.Equal(t, runtime.Version(), p.GoVersion)
}

func TestProperties_String(t *testing.T) {
	p := Properties{Version: "1.2.0", GitCommit: "abc123", BuildTime: "2024-01-01", GoVersion: "go1.23.2"}
	assert.Equal(t, "1.2.0 (commit abc123, built 2024-01-01, go1.23.2)", p.String())
}
