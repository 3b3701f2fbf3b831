// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// VideoDetails frame count and frame rate of a video.
type VideoDetails struct {
	Frames int
	FPS    float64
}

// FrameDuration returns the duration of one frame in milliseconds.
func (d VideoDetails) FrameDuration() float64 {
	if d.FPS == 0 {
		return 0
	}
	return 1000 / d.FPS
}

// ProbeFunc is used for mocking.
type ProbeFunc func(ctx context.Context, path string) (VideoDetails, error)

// FFPROBE stores ffprobe binary location.
type FFPROBE struct {
	command func(context.Context, ...string) *exec.Cmd
}

// New returns FFPROBE.
func New(bin string) *FFPROBE {
	command := func(ctx context.Context, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, bin, args...)
	}
	return &FFPROBE{command: command}
}

// Errors.
var (
	ErrNoVideoStream = errors.New("no video stream")
	ErrInvalidRate   = errors.New("invalid frame rate")
)

// Probe counts the frames in the first video stream of path.
func (f *FFPROBE) Probe(ctx context.Context, path string) (VideoDetails, error) {
	cmd := f.command(ctx,
		"-v", "error",
		"-count_packets",
		"-select_streams", "v:0",
		"-show_streams",
		"-of", "json",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return VideoDetails{}, fmt.Errorf("ffprobe %v: %w: %s", path, err, stderr.String())
	}

	details, err := parseProbe(stdout.Bytes())
	if err != nil {
		return VideoDetails{}, fmt.Errorf("ffprobe %v: %w", path, err)
	}
	return details, nil
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	NbReadPackets string `json:"nb_read_packets"`
	NbFrames      string `json:"nb_frames"`
	RFrameRate    string `json:"r_frame_rate"`
}

func parseProbe(raw []byte) (VideoDetails, error) {
	var output probeOutput
	if err := json.Unmarshal(raw, &output); err != nil {
		return VideoDetails{}, fmt.Errorf("unmarshal: %w", err)
	}
	if len(output.Streams) == 0 {
		return VideoDetails{}, ErrNoVideoStream
	}
	stream := output.Streams[0]

	fps, err := parseRate(stream.RFrameRate)
	if err != nil {
		return VideoDetails{}, err
	}

	count := stream.NbReadPackets
	if count == "" {
		count = stream.NbFrames
	}
	frames, err := strconv.Atoi(count)
	if err != nil {
		return VideoDetails{}, fmt.Errorf("frame count %q: %w", count, err)
	}

	return VideoDetails{Frames: frames, FPS: fps}, nil
}

// parseRate parses rates like "30000/1001" and "25".
func parseRate(rate string) (float64, error) {
	num, den := rate, "1"
	if i := strings.Index(rate, "/"); i != -1 {
		num, den = rate[:i], rate[i+1:]
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, rate)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, rate)
	}
	return n / d, nil
}
