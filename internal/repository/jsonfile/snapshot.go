// Package jsonfile keeps collections in memory and mirrors each one to a
// single JSON snapshot file that is replaced wholesale on every mutation.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/metrics"
)

// ErrEmptySnapshot is returned by Load when the file holds an empty array.
var ErrEmptySnapshot = errors.New("snapshot is empty")

// Snapshot reads and writes one collection file.
type Snapshot[T any] struct {
	path       string
	collection string
}

func NewSnapshot[T any](path, collection string) *Snapshot[T] {
	return &Snapshot[T]{path: path, collection: collection}
}

func (s *Snapshot[T]) Path() string {
	return s.path
}

// Load decodes the snapshot. Missing files surface as os.ErrNotExist.
func (s *Snapshot[T]) Load() ([]T, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if len(records) == 0 {
		return nil, ErrEmptySnapshot
	}
	return records, nil
}

// Save writes records to a temp file in the same directory, syncs it and
// renames it over the snapshot, so readers only ever see a complete file.
func (s *Snapshot[T]) Save(records []T) (err error) {
	started := time.Now()
	defer func() { metrics.ObserveSnapshotWrite(s.collection, started, err) }()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrPersistence, s.collection, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Quarantine renames an unusable snapshot to <path>.corrupt-<timestamp> so a
// fresh collection can be written without losing the old bytes. It returns
// the new name.
func (s *Snapshot[T]) Quarantine(now time.Time) (string, error) {
	target := fmt.Sprintf("%s.corrupt-%s", s.path, now.UTC().Format("20060102T150405.000000000"))
	if err := os.Rename(s.path, target); err != nil {
		return "", fmt.Errorf("quarantine %s: %w", s.path, err)
	}
	return target, nil
}
