package history

import (
	"context"
	"sort"
	"sync"
)

// UserChecker reports whether a user exists.
type UserChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type memoryRepository struct {
	mu      sync.RWMutex
	records map[string]Record
	users   UserChecker
}

// NewMemoryRepository builds an in-memory record store. When users is not
// nil, Create enforces that the owner exists.
func NewMemoryRepository(users UserChecker) Repository {
	return &memoryRepository{records: make(map[string]Record), users: users}
}

func (r *memoryRepository) Create(ctx context.Context, record Record) error {
	if r.users != nil {
		ok, err := r.users.Exists(ctx, record.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownUser
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Record
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (r *memoryRepository) Update(_ context.Context, id string, update Update) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	rec = update.apply(rec)
	r.records[id] = rec
	return rec, nil
}

func (r *memoryRepository) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.records {
		if rec.UserID == userID {
			delete(r.records, id)
		}
	}
	return nil
}
