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

// Package segment correlates recordings from multiple cameras.
//
// Every recording is a Segment stored in a Set. Relations between
// segments are kept as IDs in the set so the graph has no pointer cycles.
//
//   LinkChains  joins the parts of split recordings into chains.
//   Match       pairs each chain with the closest chain from another camera.
//   ForceMatch  adds operator supplied pairs and offsets.
package segment

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ID is the handle of a segment in a Set.
type ID int

// NoID is used when there is no related segment.
const NoID ID = -1

// RootPrefix is the filename prefix of the first part of a chain.
//
//   GOPR0042.MP4  root of chain 0042.
//   GP010042.MP4  part 1 of chain 0042.
//   GP020042.MP4  part 2 of chain 0042.
const RootPrefix = "GOPR"

// Segment is a single recording.
type Segment struct {
	ID       ID
	Path     string
	Camera   string
	Filename string

	// Milliseconds since the recording started.
	Tags      []uint32
	Signature []int64

	Prefix     string
	ChainIndex string
	Part       int

	next    ID
	matched map[ID]struct{}
	forced  map[ID]float64
}

// New creates a segment from the recording at path.
func New(path string, camera string, tags []uint32) (*Segment, error) {
	filename := filepath.Base(path)

	prefix, index, part, err := ParseFilename(filename)
	if err != nil {
		return nil, err
	}

	return &Segment{
		ID:         NoID,
		Path:       path,
		Camera:     camera,
		Filename:   filename,
		Tags:       tags,
		Signature:  MakeSignature(tags),
		Prefix:     prefix,
		ChainIndex: index,
		Part:       part,

		next:    NoID,
		matched: make(map[ID]struct{}),
		forced:  make(map[ID]float64),
	}, nil
}

func (s *Segment) String() string {
	return s.Camera + "/" + s.Filename
}

// IsRoot returns true if the segment is the first part of a chain.
func (s *Segment) IsRoot() bool {
	return s.Part == 0
}

// Next returns the next part of the chain.
func (s *Segment) Next() (ID, bool) {
	return s.next, s.next != NoID
}

// ForcedOffset returns the operator supplied offset to other.
func (s *Segment) ForcedOffset(other ID) (float64, bool) {
	offset, exist := s.forced[other]
	return offset, exist
}

// MakeSignature returns the tags relative to the first tag.
// At least two tags are needed for a signature.
func MakeSignature(tags []uint32) []int64 {
	if len(tags) < 2 {
		return []int64{}
	}

	first := int64(tags[0])
	signature := make([]int64, 0, len(tags)-1)
	for _, tag := range tags[1:] {
		signature = append(signature, int64(tag)-first)
	}
	return signature
}

// ErrMalformedFilename filename does not follow the camera naming scheme.
var ErrMalformedFilename = errors.New("malformed filename")

// ParseFilename parses the chain prefix, chain index and part number.
// Characters 0-3 are the prefix and 4-7 are the chain index.
// The part number of a non root prefix is in characters 2-3.
func ParseFilename(filename string) (string, string, int, error) {
	if len(filename) < 8 {
		return "", "", 0, fmt.Errorf("%w: %q: too short", ErrMalformedFilename, filename)
	}
	prefix := filename[0:4]
	index := filename[4:8]

	if prefix == RootPrefix {
		return prefix, index, 0, nil
	}

	digits := prefix[2:4]
	if strings.Trim(digits, "0123456789") != "" {
		return "", "", 0, fmt.Errorf("%w: %q: part number %q", ErrMalformedFilename, filename, digits)
	}
	part, _ := strconv.Atoi(digits)
	if part == 0 {
		return "", "", 0, fmt.Errorf("%w: %q: part zero without root prefix", ErrMalformedFilename, filename)
	}

	return prefix, index, part, nil
}

// Set owns all segments of a run.
type Set struct {
	segments   []*Segment
	byFilename map[string][]ID
}

// NewSet creates a set and assigns IDs.
// Segments are ordered by camera and path.
func NewSet(segments []*Segment) *Set {
	sorted := make([]*Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Camera != sorted[j].Camera {
			return sorted[i].Camera < sorted[j].Camera
		}
		return sorted[i].Path < sorted[j].Path
	})

	set := &Set{
		segments:   sorted,
		byFilename: make(map[string][]ID),
	}
	for i, seg := range sorted {
		seg.ID = ID(i)
		set.byFilename[seg.Filename] = append(set.byFilename[seg.Filename], seg.ID)
	}
	return set
}

// Len returns the number of segments.
func (s *Set) Len() int {
	return len(s.segments)
}

// Get returns segment by id.
func (s *Set) Get(id ID) *Segment {
	return s.segments[id]
}

// All returns all segments in ID order.
func (s *Set) All() []*Segment {
	return s.segments
}

// Roots returns the IDs of all root segments.
func (s *Set) Roots() []ID {
	var roots []ID
	for _, seg := range s.segments {
		if seg.IsRoot() {
			roots = append(roots, seg.ID)
		}
	}
	return roots
}

// Errors.
var (
	ErrSegmentNotFound   = errors.New("segment not found")
	ErrAmbiguousFilename = errors.New("filename exists for more than one camera")
)

// ByFilename returns segment by filename.
// "camera/filename" selects a camera when the filename isn't unique.
func (s *Set) ByFilename(name string) (*Segment, error) {
	camera, filename := "", name
	if i := strings.LastIndex(name, "/"); i != -1 {
		camera, filename = name[:i], name[i+1:]
	}

	var found []ID
	for _, id := range s.byFilename[filename] {
		if camera == "" || s.segments[id].Camera == camera {
			found = append(found, id)
		}
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrSegmentNotFound, name)
	case 1:
		return s.segments[found[0]], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousFilename, name)
	}
}
