// Copyright 2020-2022 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package log

// API inspired by zerolog https://github.com/rs/zerolog

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Level defines log level.
type Level uint8

// Logging constants, matching ffmpeg.
const (
	LevelError   Level = 16
	LevelWarning Level = 24
	LevelInfo    Level = 32
	LevelDebug   Level = 48
)

// ErrInvalidLevel invalid log level.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses "error", "warning", "info" or "debug".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "error":
		return LevelError, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARNING"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	}
	return fmt.Sprintf("LEVEL%d", uint8(l))
}

// UnixMillisecond .
type UnixMillisecond uint64

// Event defines log event.
type Event struct {
	level  Level
	time   UnixMillisecond // Timestamp.
	src    string          // Source.
	camera string          // Source camera.

	logger *Logger
}

// Log defines log entry.
type Log struct {
	Level  Level
	Time   UnixMillisecond // Timestamp.
	Msg    string          // Message
	Src    string          // Source.
	Camera string          // Source camera.
	Run    string          // Run id.
}

// Src sets event source.
func (e *Event) Src(source string) *Event {
	e.src = source
	return e
}

// Camera sets event camera.
func (e *Event) Camera(camera string) *Event {
	e.camera = camera
	return e
}

// Time sets event time.
func (e *Event) Time(t time.Time) *Event {
	e.time = toUnixMillisecond(t)
	return e
}

// Msg sends the *Event with msg added as the message field.
func (e *Event) Msg(msg string) {
	e.logger.log(Log{
		Level:  e.level,
		Time:   e.time,
		Msg:    msg,
		Src:    e.src,
		Camera: e.camera,
	})
}

// Msgf sends the event with formatted msg added as the message field.
func (e *Event) Msgf(format string, v ...interface{}) {
	e.Msg(fmt.Sprintf(format, v...))
}

// Sink receives every log.
type Sink func(Log)

// Logger logs.
// Logs are passed to the sinks synchronously and in order.
type Logger struct {
	run   string
	sinks []Sink
	mu    sync.Mutex
}

// NewLogger returns a logger that tags every log with the run id.
func NewLogger(run string) *Logger {
	return &Logger{run: run}
}

// NewMockLogger used for testing.
func NewMockLogger() *Logger {
	return &Logger{}
}

// Run returns the run id.
func (l *Logger) Run() string {
	return l.run
}

// AddSink adds a sink that will receive all future logs.
func (l *Logger) AddSink(sink Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, sink)
}

func (l *Logger) log(log Log) {
	if l == nil {
		return
	}
	log.Run = l.run

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, sink := range l.sinks {
		sink(log)
	}
}

// Error starts a new message with error level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Error() *Event {
	return l.newEvent(LevelError)
}

// Warn starts a new message with warn level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Warn() *Event {
	return l.newEvent(LevelWarning)
}

// Info starts a new message with info level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Info() *Event {
	return l.newEvent(LevelInfo)
}

// Debug starts a new message with debug level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Debug() *Event {
	return l.newEvent(LevelDebug)
}

func (l *Logger) newEvent(level Level) *Event {
	return &Event{
		level:  level,
		time:   toUnixMillisecond(time.Now()),
		logger: l,
	}
}

func toUnixMillisecond(t time.Time) UnixMillisecond {
	return UnixMillisecond(t.UnixNano() / int64(time.Millisecond))
}

// NewPrinter returns a sink that prints logs up to maxLevel to w.
func NewPrinter(w io.Writer, maxLevel Level) Sink {
	return func(log Log) {
		if log.Level > maxLevel {
			return
		}
		fmt.Fprintln(w, Format(log))
	}
}

// Format formats log as a single line.
func Format(log Log) string {
	var output string

	output += "[" + log.Level.String() + "] "

	if log.Camera != "" {
		output += log.Camera + ": "
	}
	if log.Src != "" {
		output += strings.ToUpper(log.Src[:1]) + log.Src[1:] + ": "
	}

	output += log.Msg
	return output
}
