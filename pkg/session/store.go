package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// ErrIndexOutOfRange session index is out of range.
var ErrIndexOutOfRange = errors.New("session index out of range")

// Save writes sessions to path as YAML.
// The file is replaced atomically.
func Save(path string, sessions []Session) error {
	if sessions == nil {
		sessions = []Session{}
	}
	raw, err := yaml.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write sessions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temporary file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temporary file: %w", err)
	}
	return nil
}

// Load reads sessions written by Save.
func Load(path string) ([]Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}

	var sessions []Session
	if err := yaml.Unmarshal(raw, &sessions); err != nil {
		return nil, fmt.Errorf("unmarshal sessions: %w", err)
	}
	for i, s := range sessions {
		if s.Views == nil {
			sessions[i].Views = make(map[string]*View)
		}
	}
	return sessions, nil
}

// Index returns session i.
func Index(sessions []Session, i int) (Session, error) {
	if i < 0 || i >= len(sessions) {
		return Session{}, fmt.Errorf("%w: %d, have %d", ErrIndexOutOfRange, i, len(sessions))
	}
	return sessions[i], nil
}
