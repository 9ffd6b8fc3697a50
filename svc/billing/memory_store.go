package billing

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store. Suitable for development and testing;
// the transition guards behave exactly like the Mongo filters.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

// NewMemoryStore creates an empty in-memory subscription store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[uuid.UUID]*Subscription)}
}

func (s *MemoryStore) Create(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sub
	s.subs[sub.ID] = &cp
	return nil
}

func (s *MemoryStore) FindByOrderID(ctx context.Context, orderID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.OrderID == orderID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (s *MemoryStore) FindLatestByUserID(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Subscription
	for _, sub := range s.subs {
		if sub.UserID != userID {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) {
			latest = sub
		}
	}
	if latest == nil {
		return nil, ErrSubscriptionNotFound
	}
	cp := *latest
	return &cp, nil
}

// transition applies the guarded status change under the store lock, which
// gives the same atomicity as the Mongo filter-update.
func (s *MemoryStore) transition(id uuid.UUID, to Status, mutate func(*Subscription)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return false, nil
	}
	if !slices.Contains(Predecessors(to), sub.Status) {
		return false, nil
	}

	sub.Status = to
	sub.UpdatedAt = time.Now().UTC()
	if mutate != nil {
		mutate(sub)
	}
	return true, nil
}

func (s *MemoryStore) MarkActive(ctx context.Context, id uuid.UUID, start, end, paid time.Time) (bool, error) {
	return s.transition(id, StatusActive, func(sub *Subscription) {
		sub.StartDate = &start
		sub.EndDate = &end
		sub.PaymentDate = &paid
	})
}

func (s *MemoryStore) MarkChallenge(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.transition(id, StatusChallenge, nil)
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.transition(id, StatusFailed, nil)
}

func (s *MemoryStore) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.transition(id, StatusExpired, nil)
}

func (s *MemoryStore) ExpireActiveExcept(ctx context.Context, userID uuid.UUID, keep uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, sub := range s.subs {
		if sub.UserID != userID || sub.Status != StatusActive || sub.ID == keep {
			continue
		}
		sub.Status = StatusExpired
		sub.UpdatedAt = time.Now().UTC()
		n++
	}
	return n, nil
}

func (s *MemoryStore) MarkReminded(ctx context.Context, id uuid.UUID, days int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok || sub.Status != StatusActive || sub.ReminderDays == days {
		return false, nil
	}
	sub.ReminderDays = days
	sub.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MemoryStore) ListActiveEndedBefore(ctx context.Context, t time.Time) ([]Subscription, error) {
	return s.listActive(func(sub *Subscription) bool {
		return sub.EndDate != nil && sub.EndDate.Before(t)
	}), nil
}

func (s *MemoryStore) ListActiveEndingWithin(ctx context.Context, from, to time.Time) ([]Subscription, error) {
	return s.listActive(func(sub *Subscription) bool {
		return sub.EndDate != nil && sub.EndDate.After(from) && !sub.EndDate.After(to)
	}), nil
}

func (s *MemoryStore) listActive(match func(*Subscription) bool) []Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Subscription
	for _, sub := range s.subs {
		if sub.Status == StatusActive && match(sub) {
			out = append(out, *sub)
		}
	}
	return out
}
