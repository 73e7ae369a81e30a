package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/AnkitShukla-arch/ddos-simulation/definitions"
	"github.com/AnkitShukla-arch/ddos-simulation/log/level"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantSeen []string
		wantMiss []string
	}{
		{
			name:     "info logfmt without color",
			opts:     Options{Level: "info", ColorMode: definitions.ColorNever, Instance: "info_logfmt"},
			wantSeen: []string{"msg=info", "msg=warn", "instance=info_logfmt"},
			wantMiss: []string{"msg=debug", "\x1b["},
		},
		{
			name:     "error only",
			opts:     Options{Level: "error", ColorMode: definitions.ColorNever},
			wantSeen: []string{"msg=error"},
			wantMiss: []string{"msg=info", "msg=warn"},
		},
		{
			name:     "debug with forced color",
			opts:     Options{Level: "debug", ColorMode: definitions.ColorAlways},
			wantSeen: []string{"msg=debug", "\x1b[36m", "\x1b[0m"},
		},
		{
			name:     "none",
			opts:     Options{Level: "none"},
			wantMiss: []string{"msg="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "")

			buf := &bytes.Buffer{}
			tt.opts.Output = buf

			logger := SetupLogging(tt.opts)
			assert.Same(t, logger, Logger)

			_ = level.Debug(logger).Log(definitions.LogKeyMsg, "debug")
			_ = level.Info(logger).Log(definitions.LogKeyMsg, "info")
			_ = level.Warn(logger).Log(definitions.LogKeyMsg, "warn")
			_ = level.Error(logger).Log(definitions.LogKeyMsg, "error")

			out := buf.String()
			for _, s := range tt.wantSeen {
				assert.Contains(t, out, s)
			}

			for _, s := range tt.wantMiss {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSetupLoggingJSON(t *testing.T) {
	buf := &bytes.Buffer{}

	logger := SetupLogging(Options{Level: "info", FormatJSON: true, Output: buf, Instance: "bot-1"})
	_ = level.Info(logger).Log(definitions.LogKeyMsg, "Traffic summary", "sent", 3)

	var record map[string]any

	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &record))
	assert.Equal(t, "Traffic summary", record["msg"])
	assert.Equal(t, "bot-1", record[definitions.LogKeyInstance])
	assert.EqualValues(t, 3, record["sent"])
}

func TestParseLevel(t *testing.T) {
	lvl, enabled := ParseLevel("WARNING")
	assert.True(t, enabled)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, enabled = ParseLevel("off")
	assert.False(t, enabled)

	lvl, _ = ParseLevel("")
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestUseColorHonoursNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	assert.False(t, UseColor(definitions.ColorAlways, &bytes.Buffer{}))
}
