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

package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Recordings are stored in the following format
//
// <Camera directory>
// ├── GOPR0001.MP4  // First part of chain 0001.
// ├── GP010001.MP4  // Second part.
// └── GOPR0002.MP4
//
// The camera is named after its directory.

// Recording is a recording file and the camera it belongs to.
type Recording struct {
	Camera string
	Path   string
	Size   int64
}

// ErrDuplicateCamera two camera directories have the same name.
var ErrDuplicateCamera = errors.New("duplicate camera name")

// Crawl returns the recordings in dirs that match pattern,
// sorted by camera and path. Subdirectories are not searched.
func Crawl(dirs []string, pattern string) ([]Recording, error) {
	cameras := make(map[string]string)
	var recordings []Recording
	for _, dir := range dirs {
		camera := filepath.Base(filepath.Clean(dir))
		if prev, exist := cameras[camera]; exist {
			return nil, fmt.Errorf("%w: %v: %v and %v", ErrDuplicateCamera, camera, prev, dir)
		}
		cameras[camera] = dir

		found, err := crawlDir(os.DirFS(dir), dir, camera, pattern)
		if err != nil {
			return nil, fmt.Errorf("camera %v: %w", camera, err)
		}
		recordings = append(recordings, found...)
	}

	sort.Slice(recordings, func(i, j int) bool {
		if recordings[i].Camera != recordings[j].Camera {
			return recordings[i].Camera < recordings[j].Camera
		}
		return recordings[i].Path < recordings[j].Path
	})
	return recordings, nil
}

func crawlDir(fileSystem fs.FS, dir string, camera string, pattern string) ([]Recording, error) {
	entries, err := fs.ReadDir(fileSystem, ".")
	if err != nil {
		return nil, fmt.Errorf("read directory %v: %w", dir, err)
	}

	var recordings []Recording
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match, err := filepath.Match(pattern, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
		}
		if !match {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %v: %w", entry.Name(), err)
		}
		recordings = append(recordings, Recording{
			Camera: camera,
			Path:   filepath.Join(dir, entry.Name()),
			Size:   info.Size(),
		})
	}
	return recordings, nil
}

// TotalSize returns the combined size of the recordings in bytes.
func TotalSize(recordings []Recording) int64 {
	var total int64
	for _, rec := range recordings {
		total += rec.Size
	}
	return total
}

const (
	kilobyte float64 = 1000
	megabyte         = kilobyte * 1000
	gigabyte         = megabyte * 1000
	terabyte         = gigabyte * 1000
)

// FormatSize formats bytes for humans.
func FormatSize(bytes int64) string {
	used := float64(bytes)
	switch {
	case used < 1000*megabyte:
		return fmt.Sprintf("%.0fMB", used/megabyte)
	case used < 10*gigabyte:
		return fmt.Sprintf("%.2fGB", used/gigabyte)
	case used < 100*gigabyte:
		return fmt.Sprintf("%.1fGB", used/gigabyte)
	case used < 1000*gigabyte:
		return fmt.Sprintf("%.0fGB", used/gigabyte)
	case used < 10*terabyte:
		return fmt.Sprintf("%.2fTB", used/terabyte)
	case used < 100*terabyte:
		return fmt.Sprintf("%.1fTB", used/terabyte)
	default:
		return fmt.Sprintf("%.0fTB", used/terabyte)
	}
}
