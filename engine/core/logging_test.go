package core

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogOutputAndLevel(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	t.Cleanup(func() {
		SetLogOutput(os.Stderr)
		_ = SetLogLevel("info")
	})

	require.NoError(t, SetLogLevel("warn"))
	LogInfo("resize to %dx%d", 640, 480)
	LogWarn("keeping the previous shaders: %s", "bad")
	LogError("draw failed")

	out := buf.String()
	assert.NotContains(t, out, "resize to 640x480")
	assert.Contains(t, out, "keeping the previous shaders: bad")
	assert.Contains(t, out, "draw failed")

	assert.Error(t, SetLogLevel("loud"))
}
