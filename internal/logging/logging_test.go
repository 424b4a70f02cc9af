package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	t.Cleanup(func() { SetLevel(Info) })

	SetLevel(Warn)
	Logger().Info("should not appear")
	Logger().Warn("should appear")

	out := buf.String()
	assert.False(t, strings.Contains(out, "should not appear"))
	assert.True(t, strings.Contains(out, "should appear"))
}

func TestOffSuppressesEverything(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	t.Cleanup(func() { SetLevel(Info) })

	SetLevel(Off)
	Logger().Error("silenced")
	Logger().Warn("silenced")
	Logger().Info("silenced")

	assert.Equal(t, "", buf.String())
}

func TestLevelString(t *testing.T) {
	cases := map[Level]string{
		Off: "off", Error: "error", Warn: "warn",
		Info: "info", Debug: "debug", Trace: "trace",
	}
	for level, want := range cases {
		assert.Equal(t, want, level.String())
	}
}
