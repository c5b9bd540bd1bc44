// Package params persists the fitted coefficients between runs.
package params

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"carprice/ml"
)

// FileStore keeps theta0 and theta1 on two lines of a text file.
type FileStore struct {
	path     string
	defaults ml.Coefficients
}

func NewFileStore(path string, defaults ml.Coefficients) *FileStore {
	return &FileStore{path: path, defaults: defaults}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored coefficients, writing the defaults first when the
// file does not exist yet.
func (s *FileStore) Load() (ml.Coefficients, error) {
	payload, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.Save(s.defaults); err != nil {
			return ml.Coefficients{}, err
		}
		return s.defaults, nil
	}
	if err != nil {
		return ml.Coefficients{}, err
	}
	return Parse(string(payload))
}

// Save replaces the file atomically.
func (s *FileStore) Save(c ml.Coefficients) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(Format(c)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Reset deletes the file. A missing file is not an error.
func (s *FileStore) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Format renders coefficients as "theta0\ntheta1".
func Format(c ml.Coefficients) string {
	return strconv.FormatFloat(c.Theta0, 'g', -1, 64) + "\n" + strconv.FormatFloat(c.Theta1, 'g', -1, 64)
}

// Parse reads the first two whitespace separated values as theta0 and theta1.
func Parse(text string) (ml.Coefficients, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ml.Coefficients{}, fmt.Errorf("parameter file needs two values, got %d", len(fields))
	}
	theta0, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return ml.Coefficients{}, fmt.Errorf("theta0: %w", err)
	}
	theta1, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return ml.Coefficients{}, fmt.Errorf("theta1: %w", err)
	}
	return ml.Coefficients{Theta0: theta0, Theta1: theta1}, nil
}

// MemoryStore is an in-process store.
type MemoryStore struct {
	mu       sync.Mutex
	defaults ml.Coefficients
	current  *ml.Coefficients
}

func NewMemoryStore(defaults ml.Coefficients) *MemoryStore {
	return &MemoryStore{defaults: defaults}
}

func (s *MemoryStore) Load() (ml.Coefficients, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		c := s.defaults
		s.current = &c
	}
	return *s.current, nil
}

func (s *MemoryStore) Save(c ml.Coefficients) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &c
	return nil
}

func (s *MemoryStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	return nil
}

// Stored reports whether a value exists, without creating one.
func (s *MemoryStore) Stored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Override replaces the named coefficients and keeps the others as stored.
func Override(store ml.ParameterStore, theta0, theta1 *float64) (ml.Coefficients, error) {
	c, err := store.Load()
	if err != nil {
		return c, err
	}
	if theta0 == nil && theta1 == nil {
		return c, nil
	}
	if theta0 != nil {
		c.Theta0 = *theta0
	}
	if theta1 != nil {
		c.Theta1 = *theta1
	}
	return c, store.Save(c)
}
