package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and setups that
// run without a database.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryRepository creates an empty in-memory activity trail.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Record appends an entry, generating ID and CreatedAt if unset.
func (r *MemoryRepository) Record(_ context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "act-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// List returns matching entries, most recent first.
func (r *MemoryRepository) List(_ context.Context, filter Filter) (*ListResult, error) {
	filter = clampFilter(filter)

	r.mu.RLock()
	var matched []Entry
	for _, e := range r.entries {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		matched = append(matched, e)
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if filter.Offset >= total {
		matched = nil
	} else {
		matched = matched[filter.Offset:]
		if len(matched) > filter.Limit {
			matched = matched[:filter.Limit]
		}
	}

	if matched == nil {
		matched = []Entry{}
	}

	return &ListResult{
		Entries: matched,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
