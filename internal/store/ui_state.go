package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const uiStateFileName = "ui_state.json"

// UIState remembers small UI preferences across launches. It is best effort:
// callers tolerate missing or invalid data.
type UIState struct {
	Version int `json:"version"`

	// Filter is one of: all|active|completed
	Filter string `json:"filter,omitempty"`
}

// UIStateStore keeps ui_state.json in Dir.
type UIStateStore struct {
	Dir string
}

func (s UIStateStore) path() string {
	return filepath.Join(s.Dir, uiStateFileName)
}

func (s UIStateStore) Load() (*UIState, error) {
	if strings.TrimSpace(s.Dir) == "" {
		return &UIState{Version: 1}, nil
	}
	b, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &UIState{Version: 1}, nil
		}
		return nil, err
	}
	var st UIState
	if err := json.Unmarshal(b, &st); err != nil {
		// Corrupt file reads as missing.
		return &UIState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func (s UIStateStore) Save(st *UIState) error {
	if st == nil || strings.TrimSpace(s.Dir) == "" {
		return nil
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(s.Dir, uiStateFileName+".*.tmp", s.path(), b, 0o644)
}
