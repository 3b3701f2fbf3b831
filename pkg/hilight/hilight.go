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

// Package hilight extracts HiLight tags from GoPro recordings.
//
// HiLight tags are stored in a "HMMT" box inside moov/udta.
//   count uint32
//   tags  [count]uint32 // Milliseconds since the recording started.
//
// The box offsets reported by some cameras are off by a few bytes, the
// claimed region is therefore searched for the marker and everything after
// it is treated as the payload.
package hilight

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"camsync/pkg/video/mp4"

	"github.com/icza/bitio"
)

// Marker is the type of the box that holds the tags.
const Marker = "HMMT"

// MarkerType is Marker as a box type.
var MarkerType = mp4.BoxType{'H', 'M', 'M', 'T'}

// Errors.
var (
	ErrNoTags    = errors.New("no HiLight tags")
	ErrTruncated = errors.New("truncated tag payload")
)

// FindBox returns the first box of type typ, depth first.
func FindBox(boxes []mp4.BoxInfo, typ mp4.BoxType) (mp4.BoxInfo, bool) {
	for _, box := range boxes {
		if box.Type == typ {
			return box, true
		}
		if child, found := FindBox(box.Children, typ); found {
			return child, true
		}
	}
	return mp4.BoxInfo{}, false
}

// findBoxes returns all boxes of type typ in depth first order.
func findBoxes(boxes []mp4.BoxInfo, typ mp4.BoxType) []mp4.BoxInfo {
	var found []mp4.BoxInfo
	for _, box := range boxes {
		if box.Type == typ {
			found = append(found, box)
		}
		found = append(found, findBoxes(box.Children, typ)...)
	}
	return found
}

// Payload returns the bytes after the marker of the first tag box
// that contains one. The read position of r is restored.
func Payload(r io.ReadSeeker, boxes []mp4.BoxInfo) ([]byte, error) {
	for _, box := range findBoxes(boxes, MarkerType) {
		raw, err := readRegion(r, box.Offset, box.Size)
		if err != nil {
			return nil, fmt.Errorf("read %v box: %w", Marker, err)
		}

		i := bytes.Index(raw, []byte(Marker))
		if i == -1 {
			continue
		}
		return raw[i+len(Marker):], nil
	}
	return nil, ErrNoTags
}

// readRegion reads size bytes at offset without moving the read position.
// A region that extends past the end of the file is cut short.
func readRegion(r io.ReadSeeker, offset int64, size int64) ([]byte, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	defer r.Seek(pos, io.SeekStart) //nolint:errcheck

	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// DecodeTags decodes a count prefixed list of big endian tags.
func DecodeTags(payload []byte) ([]uint32, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(payload))
	}

	r := bitio.NewReader(bytes.NewReader(payload))

	count := r.TryReadBits(32)
	if int64(len(payload)-4) < int64(count)*4 {
		return nil, fmt.Errorf("%w: %d tags in %d bytes", ErrTruncated, count, len(payload)-4)
	}

	tags := make([]uint32, count)
	for i := range tags {
		tags[i] = uint32(r.TryReadBits(32))
	}
	if r.TryError != nil {
		return nil, r.TryError
	}
	return tags, nil
}

// ReadFile returns the tags of a recording.
// A recording without a tag box has no tags, this is not an error.
func ReadFile(path string) ([]uint32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	// Boxes before an invalid box are still searched for tags.
	var boxErr error
	boxes, err := mp4.ReadBoxes(file, stat.Size())
	if err != nil {
		boxErr = fmt.Errorf("read boxes: %w", err)
		if !errors.Is(err, mp4.ErrInvalidBox) {
			return nil, boxErr
		}
	}

	payload, err := Payload(file, boxes)
	if errors.Is(err, ErrNoTags) {
		if boxErr != nil {
			return nil, boxErr
		}
		return []uint32{}, nil
	} else if err != nil {
		return nil, err
	}

	return DecodeTags(payload)
}
