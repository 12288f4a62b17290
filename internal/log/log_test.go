package log_test

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	appLog "weekcal/internal/log"
)

func capture(t *testing.T, level appLog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	appLog.SetOutput(&buf)
	appLog.SetLevel(level)
	t.Cleanup(func() {
		appLog.SetOutput(os.Stderr)
		appLog.SetLevel(appLog.LevelInfo)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	cases := map[string]appLog.Level{
		"debug":   appLog.LevelDebug,
		"INFO":    appLog.LevelInfo,
		"":        appLog.LevelInfo,
		"warning": appLog.LevelWarn,
		" error ": appLog.LevelError,
	}
	for in, want := range cases {
		got, ok := appLog.ParseLevel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	got, ok := appLog.ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, appLog.LevelInfo, got)
}

func TestInfo_FormatsKeyValues(t *testing.T) {
	buf := capture(t, appLog.LevelInfo)

	appLog.Info("layout recomputed", "events", 3, "clusters", 2, "dangling")

	line := buf.String()
	assert.Contains(t, line, "[INFO] layout recomputed events=3 clusters=2")
	assert.NotContains(t, line, "dangling")
}

func TestError_PrependsErr(t *testing.T) {
	buf := capture(t, appLog.LevelInfo)

	appLog.Error("fetch failed", errors.New("boom"), "id", "work")

	assert.Contains(t, buf.String(), "[ERROR] fetch failed err=boom id=work")
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, appLog.LevelWarn)

	appLog.Debug("hidden debug")
	appLog.Info("hidden info")
	appLog.Warn("shown warn")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown warn")
}
