package ffmock

import (
	"context"
	"errors"
	"fmt"

	"camsync/pkg/ffmpeg"
)

// ErrNotProbed path isn't in the mock.
var ErrNotProbed = errors.New("not probed")

// NewProbe returns a probe function that looks up details by path.
func NewProbe(details map[string]ffmpeg.VideoDetails) ffmpeg.ProbeFunc {
	return func(_ context.Context, path string) (ffmpeg.VideoDetails, error) {
		d, exist := details[path]
		if !exist {
			return ffmpeg.VideoDetails{}, fmt.Errorf("%w: %v", ErrNotProbed, path)
		}
		return d, nil
	}
}

// Probe returns 300 frames at 30 fps for every path.
func Probe(context.Context, string) (ffmpeg.VideoDetails, error) {
	return ffmpeg.VideoDetails{Frames: 300, FPS: 30}, nil
}
