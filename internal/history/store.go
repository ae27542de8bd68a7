// Package history keeps the datasets a user has loaded during a session
// and tracks which one is active.
package history

import (
	"errors"
	"fmt"
	"sync"

	"sales-dashboard/internal/models"
)

var (
	ErrEmpty      = errors.New("no datasets loaded")
	ErrOutOfRange = errors.New("dataset index out of range")
)

// Store is an ordered list of datasets with one active entry. Active is -1
// exactly when the list is empty. Datasets are never modified in place;
// Replace swaps in a new value.
type Store struct {
	mu       sync.RWMutex
	datasets []*models.Dataset
	active   int
}

func NewStore() *Store {
	return &Store{active: -1}
}

// Append adds ds and makes it active. It returns the new index.
func (s *Store) Append(ds *models.Dataset) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.datasets = append(s.datasets, ds)
	s.active = len(s.datasets) - 1
	return s.active
}

// Active returns the active dataset, or ErrEmpty.
func (s *Store) Active() (*models.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active < 0 {
		return nil, ErrEmpty
	}
	return s.datasets[s.active], nil
}

func (s *Store) ActiveIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.datasets)
}

// Get returns the dataset at index i.
func (s *Store) Get(i int) (*models.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(i); err != nil {
		return nil, err
	}
	return s.datasets[i], nil
}

// Select makes the dataset at index i active.
func (s *Store) Select(i int) (*models.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(i); err != nil {
		return nil, err
	}
	s.active = i
	return s.datasets[i], nil
}

// All returns the datasets in insertion order.
func (s *Store) All() []*models.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Dataset, len(s.datasets))
	copy(out, s.datasets)
	return out
}

// List summarises every dataset for display.
func (s *Store) List() []models.DatasetSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.DatasetSummary, len(s.datasets))
	for i, ds := range s.datasets {
		out[i] = models.DatasetSummary{
			Index:        i,
			ID:           ds.ID,
			Filename:     ds.SourceFilename,
			UploadTime:   ds.UploadTime,
			RecordCount:  ds.Len(),
			Active:       i == s.active,
			AnalysisOK:   ds.Analysis != nil && ds.Analysis.Success,
			ClusteringOK: ds.Clustering != nil && ds.Clustering.Success,
		}
	}
	return out
}

// Replace swaps the dataset at index i for ds.
func (s *Store) Replace(i int, ds *models.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(i); err != nil {
		return err
	}
	s.datasets[i] = ds
	return nil
}

// Remove deletes the dataset at index i. The active entry keeps pointing
// at the same dataset when it survives; removing the active entry moves
// activity to its predecessor.
func (s *Store) Remove(i int) (*models.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(i)
}

// RemoveActive deletes the active dataset.
func (s *Store) RemoveActive() (*models.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active < 0 {
		return nil, ErrEmpty
	}
	return s.remove(s.active)
}

func (s *Store) remove(i int) (*models.Dataset, error) {
	if err := s.check(i); err != nil {
		return nil, err
	}
	removed := s.datasets[i]
	s.datasets = append(s.datasets[:i], s.datasets[i+1:]...)

	switch {
	case len(s.datasets) == 0:
		s.active = -1
	case i < s.active:
		s.active--
	case i == s.active:
		s.active = max(i-1, 0)
	}
	return removed, nil
}

// Clear drops every dataset and returns how many there were.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.datasets)
	s.datasets = nil
	s.active = -1
	return n
}

func (s *Store) check(i int) error {
	if i < 0 || i >= len(s.datasets) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, i, len(s.datasets))
	}
	return nil
}
