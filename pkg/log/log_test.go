// SPDX-License-Identifier: GPL-2.0-or-later

package log

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Run("sinks", func(t *testing.T) {
		logger := NewLogger("run1")

		var logs []Log
		logger.AddSink(func(log Log) { logs = append(logs, log) })

		logger.Warn().Src("match").Camera("front").Time(time.Unix(1, 0)).Msgf("%v matches", 0)

		require.Equal(t, []Log{{
			Level:  LevelWarning,
			Time:   1000,
			Msg:    "0 matches",
			Src:    "match",
			Camera: "front",
			Run:    "run1",
		}}, logs)
	})
	t.Run("nilLogger", func(t *testing.T) {
		var logger *Logger
		logger.Info().Msg("discarded")
	})
}

func TestPrinter(t *testing.T) {
	cases := []struct {
		name     string
		log      Log
		expected string
	}{
		{
			"full",
			Log{Level: LevelError, Src: "session", Camera: "back", Msg: "a"},
			"[ERROR] back: Session: a\n",
		},
		{"msgOnly", Log{Level: LevelInfo, Msg: "b"}, "[INFO] b\n"},
		{"filtered", Log{Level: LevelDebug, Msg: "c"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			NewPrinter(buf, LevelInfo)(tc.log)
			require.Equal(t, tc.expected, buf.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("Warning")
	require.NoError(t, err)
	require.Equal(t, LevelWarning, level)

	_, err = ParseLevel("loud")
	require.ErrorIs(t, err, ErrInvalidLevel)
}
