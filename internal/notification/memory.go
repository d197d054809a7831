package notification

import (
	"context"
	"sync"
	"time"
)

// MemoryInbox is the in-process inbox used when Redis is not configured.
type MemoryInbox struct {
	mu    sync.Mutex
	inbox map[string][]Message
}

// NewMemoryInbox creates an empty inbox.
func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{inbox: make(map[string][]Message)}
}

// Send prepends message to the user's inbox.
func (m *MemoryInbox) Send(_ context.Context, message Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append([]Message{message}, m.inbox[message.UserID]...)
	if len(list) > InboxSize {
		list = list[:InboxSize]
	}
	m.inbox[message.UserID] = list
	return nil
}

// Recent returns up to limit messages, newest first.
func (m *MemoryInbox) Recent(_ context.Context, userID string, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.inbox[userID]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]Message, limit)
	copy(out, list[:limit])
	return out, nil
}
