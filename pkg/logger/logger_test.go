package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "repaircoord.log")

	l, err := New(Config{Level: LevelDebug, LogFile: path, Prefix: "test"})
	require.NoError(t, err)

	l.Info("coordination started (id: %s)", "c-1")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] [test] coordination started (id: c-1)")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, LevelWarn, "")

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("agent failed (agent: %s)", "contract_analyzer")
	l.Error("fatal")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] agent failed (agent: contract_analyzer)")
	assert.Contains(t, out, "[ERROR] fatal")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(&buf, LevelInfo, "repaircoord")

	child := parent.WithPrefix("router")
	child.Info("queued")

	assert.Contains(t, buf.String(), "[repaircoord:router] queued")

	parent.SetLevel(LevelError)
	assert.Equal(t, LevelInfo, child.GetLevel())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGlobalLogger(t *testing.T) {
	original := GetLogger()
	defer SetGlobalLogger(original)

	var buf bytes.Buffer
	SetGlobalLogger(NewWithWriter(&buf, LevelDebug, "global"))

	Debug("d")
	Warn("w")

	assert.Contains(t, buf.String(), "[DEBUG] [global] d")
	assert.Contains(t, buf.String(), "[WARN] [global] w")
}
