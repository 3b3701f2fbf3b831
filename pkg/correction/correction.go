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

// Package correction applies operator supplied corrections to matching.
//
// corrections.yaml
//
//   - action: forcematch
//     filenames: GOPR0001.MP4 GOPR0042.MP4
//     offset: 500 # Optional, milliseconds relative to the first file.
//
// A filename can be prefixed with "camera/" when it isn't unique.
package correction

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"camsync/pkg/segment"

	"gopkg.in/yaml.v2"
)

// ActionForceMatch pairs two recordings.
const ActionForceMatch = "forcematch"

// Correction is a single override record.
type Correction struct {
	Action    string   `yaml:"action"`
	Filenames string   `yaml:"filenames"`
	Offset    *float64 `yaml:"offset,omitempty"`
}

// Errors.
var (
	ErrUnknownAction    = errors.New("unknown action")
	ErrInvalidFilenames = errors.New("invalid filenames")
	ErrNotRoot          = errors.New("not the first part of a chain")
)

// Files returns the two filenames.
func (c Correction) Files() (string, string, error) {
	files := strings.Fields(c.Filenames)
	if len(files) != 2 {
		return "", "", fmt.Errorf("%w: expected two got %q", ErrInvalidFilenames, c.Filenames)
	}
	if files[0] == files[1] {
		return "", "", fmt.Errorf("%w: same file twice %q", ErrInvalidFilenames, c.Filenames)
	}
	return files[0], files[1], nil
}

// Validate correction.
func (c Correction) Validate() error {
	if c.Action != ActionForceMatch {
		return fmt.Errorf("%w: %q", ErrUnknownAction, c.Action)
	}
	_, _, err := c.Files()
	return err
}

// Parse parses and validates corrections.
func Parse(data []byte) ([]Correction, error) {
	var corrections []Correction
	if err := yaml.UnmarshalStrict(data, &corrections); err != nil {
		return nil, fmt.Errorf("unmarshal corrections: %w", err)
	}

	for i, c := range corrections {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("correction %d: %w", i+1, err)
		}
	}
	return corrections, nil
}

// Load reads corrections from path. A missing file has no corrections.
func Load(path string) ([]Correction, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Apply applies corrections to set. Corrections are applied in order
// and only add pairs. Referencing an unknown file is an error.
func Apply(set *segment.Set, corrections []Correction) error {
	for i, c := range corrections {
		if err := apply(set, c); err != nil {
			return fmt.Errorf("correction %d: %w", i+1, err)
		}
	}
	return nil
}

func apply(set *segment.Set, c Correction) error {
	if err := c.Validate(); err != nil {
		return err
	}
	file1, file2, _ := c.Files()

	seg1, err := lookupRoot(set, file1)
	if err != nil {
		return err
	}
	seg2, err := lookupRoot(set, file2)
	if err != nil {
		return err
	}

	set.ForceMatch(seg1.ID, seg2.ID, c.Offset)
	return nil
}

func lookupRoot(set *segment.Set, filename string) (*segment.Segment, error) {
	seg, err := set.ByFilename(filename)
	if err != nil {
		return nil, err
	}
	if !seg.IsRoot() {
		return nil, fmt.Errorf("%w: %v", ErrNotRoot, seg)
	}
	return seg, nil
}
