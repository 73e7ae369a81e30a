// Copyright (C) 2024 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package level

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(buf *bytes.Buffer, lvl slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: lvl}))
}

func TestLogExtractsMessageAndAttributes(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestLogger(buf, slog.LevelDebug)

	_ = Info(logger).Log("msg", "hello", "sent", 10, "source", "bot")

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "msg=hello")
	assert.Contains(t, out, "sent=10")
	assert.Contains(t, out, "source=bot")
}

func TestLogDefaultsMessagePerLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestLogger(buf, slog.LevelDebug)

	_ = Warn(logger).Log("k", 1)

	assert.Contains(t, buf.String(), "msg=warn")
}

func TestLogSkipsInvalidPairs(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestLogger(buf, slog.LevelDebug)

	_ = Error(logger).Log(42, "ignored", "dangling")

	out := buf.String()
	assert.Contains(t, out, "msg=error")
	assert.NotContains(t, out, "ignored")
	assert.NotContains(t, out, "dangling")
}

func TestLogRendersTypedNil(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestLogger(buf, slog.LevelDebug)

	var err *customError

	_ = Info(logger).Log("msg", "typed nil", "error", err)

	assert.Contains(t, buf.String(), "error=<nil>")
}

func TestLogRespectsHandlerLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestLogger(buf, slog.LevelWarn)

	_ = Debug(logger).Log("msg", "hidden")
	_ = Info(logger).Log("msg", "hidden too")
	_ = Error(logger).Log("msg", "visible", "error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "error=boom")
}

type customError struct{}

func (*customError) Error() string { return "custom" }
