package weights

import (
	"context"
	"sync"

	"github.com/iwvelando/pawn-calculator/pkg/rates"
)

// MemoryStore keeps the document in process.
type MemoryStore struct {
	mu       sync.Mutex
	table    *rates.WeightTable
	watchers map[chan rates.WeightTable]struct{}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{watchers: make(map[chan rates.WeightTable]struct{})}
}

// Load returns a copy of the stored table.
func (s *MemoryStore) Load(_ context.Context) (rates.WeightTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return rates.WeightTable{}, ErrNotFound
	}
	return s.table.Clone(), nil
}

// Save merges update into the stored table and notifies watchers.
func (s *MemoryStore) Save(_ context.Context, update rates.WeightTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var merged rates.WeightTable
	if s.table == nil {
		merged = update.Clone()
	} else {
		merged = s.table.Merge(update)
	}
	s.table = &merged

	for ch := range s.watchers {
		// Keep only the latest table for a slow watcher.
		select {
		case <-ch:
		default:
		}
		ch <- merged.Clone()
	}
	return nil
}

// Watch delivers every saved table to fn until ctx is done.
func (s *MemoryStore) Watch(ctx context.Context, fn func(rates.WeightTable)) error {
	ch := make(chan rates.WeightTable, 1)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.watchers, ch)
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case table := <-ch:
			fn(table)
		}
	}
}
