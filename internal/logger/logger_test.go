package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DEBUG},
		{"WARNING", WARN},
		{"error", ERROR},
		{"FATAL", FATAL},
		{"", INFO},
		{"nonsense", INFO},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(WARN)
	defer SetLevel(INFO)

	Info("hidden %d", 1)
	Warnf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat("json")
	defer SetFormat("text")

	WithFields(map[string]interface{}{"migration": "20240101000000_init"}).Info("applied")

	out := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"migration":"20240101000000_init"`)
}
