package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/devadigapratham/printd/axis"
)

// settingsFile is the on-disk layout, e.g. {"motors":{"x":{"reference_speed":...}}}
type settingsFile struct {
	Motors map[axis.ID]axis.Settings `json:"motors"`
}

// FileStore keeps every axis in a single JSON file. An empty path keeps
// the settings in memory only.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	inMemory map[axis.ID]axis.Settings
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) (*FileStore, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create settings directory: %w", err)
		}
	}

	return &FileStore{
		path:     path,
		inMemory: make(map[axis.ID]axis.Settings),
	}, nil
}

// Load returns the stored settings of an axis
func (s *FileStore) Load(ctx context.Context, id axis.ID) (axis.Settings, error) {
	if err := ctx.Err(); err != nil {
		return axis.Settings{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	motors := s.inMemory
	if s.path != "" {
		file, err := s.read()
		if err != nil {
			return axis.Settings{}, err
		}
		motors = file.Motors
	}

	settings, ok := motors[id]
	if !ok {
		return axis.Settings{}, axis.ErrNotStored
	}
	return settings, nil
}

// Save stores the settings of an axis, keeping the other axes in the file
func (s *FileStore) Save(ctx context.Context, id axis.ID, settings axis.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		s.inMemory[id] = settings
		return nil
	}

	file, err := s.read()
	if err != nil {
		return err
	}
	file.Motors[id] = settings
	return s.write(file)
}

// Close is a no-op, every Save is already on disk
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read() (settingsFile, error) {
	file := settingsFile{Motors: make(map[axis.ID]axis.Settings)}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return file, nil
	}
	if err != nil {
		return file, fmt.Errorf("read settings file: %w", err)
	}
	if len(data) == 0 {
		return file, nil
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parse settings file %s: %w", s.path, err)
	}
	if file.Motors == nil {
		file.Motors = make(map[axis.ID]axis.Settings)
	}
	return file, nil
}

// write replaces the file atomically so a crash never leaves it half written
func (s *FileStore) write(file settingsFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
