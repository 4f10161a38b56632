package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"habitTrackerAPI/internal/types/habit"
)

// FileCache keeps the last synced State as a JSON file.
type FileCache struct {
	path string
}

func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Load returns an empty State when nothing has been cached yet.
func (c *FileCache) Load() (*State, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	state := NewState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to parse cache: %w", err)
	}
	if state.My == nil {
		state.My = []*habit.HabitSummary{}
	}
	if state.Subscribed == nil {
		state.Subscribed = []*habit.HabitSummary{}
	}
	return state, nil
}

// Save replaces the cache file atomically.
func (c *FileCache) Save(state *State) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize cache: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}
