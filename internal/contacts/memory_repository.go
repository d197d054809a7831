package contacts

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
	mu       sync.RWMutex
	contacts map[string]Contact
	users    UserChecker
}

// NewMemoryRepository builds an in-memory contact store. When users is not
// nil, Create enforces that the owner exists.
func NewMemoryRepository(users UserChecker) Repository {
	return &memoryRepository{contacts: make(map[string]Contact), users: users}
}

func (r *memoryRepository) Create(ctx context.Context, contact Contact) error {
	if r.users != nil {
		ok, err := r.users.Exists(ctx, contact.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownUser
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[contact.ID] = contact
	return nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Contact
	for _, c := range r.contacts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memoryRepository) FindByPhone(ctx context.Context, userID, phoneNumber string) (Contact, error) {
	list, _ := r.ListByUser(ctx, userID)
	for _, c := range list {
		if c.PhoneNumber == phoneNumber {
			return c, nil
		}
	}
	return Contact{}, ErrContactNotFound
}

func (r *memoryRepository) Get(_ context.Context, id string) (Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contacts[id]
	if !ok {
		return Contact{}, ErrContactNotFound
	}
	return c, nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contacts[id]; !ok {
		return ErrContactNotFound
	}
	delete(r.contacts, id)
	return nil
}

func (r *memoryRepository) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.contacts {
		if c.UserID == userID {
			delete(r.contacts, id)
		}
	}
	return nil
}
