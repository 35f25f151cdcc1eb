package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	info := Info{Version: "v1.2.0", BuildDate: "2026-01-01", GitCommit: "abc123"}
	assert.Equal(t, "v1.2.0 (commit abc123, built 2026-01-01)", info.String())
	assert.Equal(t, "dev", Get().Version)
}
