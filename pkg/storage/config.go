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

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// ConfigEnv stores system configuration.
type ConfigEnv struct {
	// Directory per camera, the base name is the camera name.
	Cameras []string `yaml:"cameras"`

	// Recordings are the files in a camera directory that match Pattern.
	Pattern string `yaml:"pattern"`

	ReferenceCamera string `yaml:"referenceCamera"`
	Corrections     string `yaml:"corrections"`
	Sessions        string `yaml:"sessions"`

	// Tag cache, disabled if "none".
	CacheFile string `yaml:"cacheFile"`

	// Log database, disabled if "none".
	LogDB string `yaml:"logDB"`

	FFprobeBin string `yaml:"ffprobeBin"`
	Layout     string `yaml:"layout"`

	ConfigDir string `yaml:"-"`
}

// Disabled value for optional files.
const Disabled = "none"

// Errors.
var (
	ErrPathNotAbsolute = errors.New("path is not absolute")
	ErrInvalidPattern  = errors.New("invalid pattern")
)

// NewConfigEnv return new environment configuration.
// Relative paths are relative to the directory of envPath.
func NewConfigEnv(envPath string, envYAML []byte) (*ConfigEnv, error) {
	var env ConfigEnv

	if err := yaml.UnmarshalStrict(envYAML, &env); err != nil {
		return nil, fmt.Errorf("unmarshal %v: %w", filepath.Base(envPath), err)
	}

	env.ConfigDir = filepath.Dir(envPath)

	if env.Pattern == "" {
		env.Pattern = "*.MP4"
	}
	if env.ReferenceCamera == "" {
		env.ReferenceCamera = "front"
	}
	if env.Corrections == "" {
		env.Corrections = "corrections.yaml"
	}
	if env.Sessions == "" {
		env.Sessions = "sessions.yaml"
	}
	if env.CacheFile == "" {
		env.CacheFile = "tags.db"
	}
	if env.LogDB == "" {
		env.LogDB = "logs.db"
	}
	if env.FFprobeBin == "" {
		env.FFprobeBin = "/usr/bin/ffprobe"
	}
	if env.Layout == "" {
		env.Layout = "front:inside:back"
	}

	if _, err := filepath.Match(env.Pattern, ""); err != nil {
		return nil, fmt.Errorf("pattern '%v': %w", env.Pattern, ErrInvalidPattern)
	}
	if !filepath.IsAbs(env.FFprobeBin) {
		return nil, fmt.Errorf("ffprobeBin '%v': %w", env.FFprobeBin, ErrPathNotAbsolute)
	}

	for i, dir := range env.Cameras {
		env.Cameras[i] = env.abs(dir)
	}
	env.Corrections = env.abs(env.Corrections)
	env.Sessions = env.abs(env.Sessions)
	if env.CacheFile != Disabled {
		env.CacheFile = env.abs(env.CacheFile)
	}
	if env.LogDB != Disabled {
		env.LogDB = env.abs(env.LogDB)
	}

	return &env, nil
}

// LoadConfigEnv reads and parses the config file at path.
// A missing file results in the default configuration.
func LoadConfigEnv(path string) (*ConfigEnv, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config path: %w", err)
	}

	envYAML, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return NewConfigEnv(path, envYAML)
}

func (env ConfigEnv) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(env.ConfigDir, path)
}
