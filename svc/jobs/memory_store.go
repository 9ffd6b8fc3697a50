package jobs

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation. Suitable for
// development and testing.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*Job
}

// NewMemoryStore creates an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[uuid.UUID]*Job)}
}

func (s *MemoryStore) Create(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := *job
	s.byID[j.ID] = &j
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.byID[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	j := *job
	return &j, nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Job
	for _, job := range s.byID {
		if filter.EmployerID != nil {
			if job.EmployerID != *filter.EmployerID {
				continue
			}
		} else if job.Status != JobOpen {
			continue
		}
		if filter.Location != "" && job.Location != filter.Location {
			continue
		}
		if filter.Featured != nil && job.Featured != *filter.Featured {
			continue
		}
		result = append(result, *job)
	}

	// Featured first, then newest, matching the Mongo sort.
	slices.SortFunc(result, func(a, b Job) int {
		if a.Featured != b.Featured {
			if a.Featured {
				return -1
			}
			return 1
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []Job{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	if result == nil {
		result = []Job{}
	}
	return result, nil
}

func (s *MemoryStore) Update(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[job.ID]; !ok {
		return ErrJobNotFound
	}
	job.UpdatedAt = time.Now().UTC()
	j := *job
	s.byID[j.ID] = &j
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return ErrJobNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *MemoryStore) CountOpenByEmployer(ctx context.Context, employerID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, job := range s.byID {
		if job.EmployerID == employerID && job.Status == JobOpen {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountFeaturedOpenByEmployer(ctx context.Context, employerID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, job := range s.byID {
		if job.EmployerID == employerID && job.Status == JobOpen && job.Featured {
			n++
		}
	}
	return n, nil
}
