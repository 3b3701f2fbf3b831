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

package mp4

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// BoxInfo describes a box found in a file.
// Only the header is read, the payload is left on disk.
type BoxInfo struct {
	Type     BoxType
	Offset   int64 // Start of the box header.
	Size     int64 // Including the header.
	Children []BoxInfo
}

// Boxes that only contain other boxes.
var containerBoxes = map[BoxType]struct{}{
	{'m', 'o', 'o', 'v'}: {},
	{'t', 'r', 'a', 'k'}: {},
	{'m', 'd', 'i', 'a'}: {},
	{'m', 'i', 'n', 'f'}: {},
	{'s', 't', 'b', 'l'}: {},
	{'u', 'd', 't', 'a'}: {},
	{'e', 'd', 't', 's'}: {},
	{'d', 'i', 'n', 'f'}: {},
	{'m', 'o', 'o', 'f'}: {},
	{'t', 'r', 'a', 'f'}: {},
	{'m', 'v', 'e', 'x'}: {},
}

// ErrInvalidBox invalid box header.
var ErrInvalidBox = errors.New("invalid box")

// ReadBoxes reads the box tree of a file that is size bytes long.
// The read position of r is restored before returning. If a box header
// is invalid, the boxes read before it are returned with the error.
func ReadBoxes(r io.ReadSeeker, size int64) ([]BoxInfo, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("tell: %w", err)
	}

	boxes, err := readBoxes(r, 0, size)

	if _, err2 := r.Seek(pos, io.SeekStart); err2 != nil {
		return nil, fmt.Errorf("restore offset: %w", err2)
	}
	return boxes, err
}

func readBoxes(r io.ReadSeeker, start int64, end int64) ([]BoxInfo, error) {
	var boxes []BoxInfo

	offset := start
	// Trailing bytes that can't hold a header are ignored.
	for end-offset >= 8 {
		box, headerSize, err := readBoxHeader(r, offset, end)
		if err != nil {
			return boxes, err
		}

		if _, isContainer := containerBoxes[box.Type]; isContainer {
			children, err := readBoxes(r, offset+headerSize, offset+box.Size)
			box.Children = children
			if err != nil {
				return append(boxes, box), fmt.Errorf("%v: %w", box.Type, err)
			}
		}

		boxes = append(boxes, box)
		offset += box.Size
	}
	return boxes, nil
}

func readBoxHeader(r io.ReadSeeker, offset int64, end int64) (BoxInfo, int64, error) {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return BoxInfo{}, 0, err
	}

	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return BoxInfo{}, 0, fmt.Errorf("read header at %d: %w", offset, err)
	}

	box := BoxInfo{Offset: offset}
	copy(box.Type[:], buf[4:8])

	headerSize := int64(8)
	size := int64(binary.BigEndian.Uint32(buf[0:4]))
	switch size {
	case 0:
		// Box extends to the end of its parent.
		size = end - offset
	case 1:
		if end-offset < 16 {
			return BoxInfo{}, 0, fmt.Errorf("%w: %v: truncated largesize", ErrInvalidBox, box.Type)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return BoxInfo{}, 0, fmt.Errorf("read largesize at %d: %w", offset, err)
		}
		size = int64(binary.BigEndian.Uint64(buf))
		headerSize = 16
	}

	if size < headerSize || size > end-offset {
		return BoxInfo{}, 0, fmt.Errorf("%w: %v: size %d at offset %d", ErrInvalidBox, box.Type, size, offset)
	}
	box.Size = size

	return box, headerSize, nil
}
