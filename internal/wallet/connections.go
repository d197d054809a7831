package wallet

import (
	"sync"

	"github.com/payphone/payphone/internal/ledger"
)

type connection struct {
	info   Connection
	signer ledger.Signer
}

// Connections is the per-user registry of connected signers.
type Connections struct {
	mu    sync.RWMutex
	byKey map[string]connection
}

// NewConnections creates an empty registry.
func NewConnections() *Connections {
	return &Connections{byKey: make(map[string]connection)}
}

// Put replaces the signer connected for info.UserID.
func (c *Connections) Put(info Connection, signer ledger.Signer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[info.UserID] = connection{info: info, signer: signer}
}

// Remove drops the user's signer and reports whether one was connected.
func (c *Connections) Remove(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.byKey[userID]
	delete(c.byKey, userID)
	return ok
}

// Get returns the user's connected signer, if any.
func (c *Connections) Get(userID string) (ledger.Signer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conn, ok := c.byKey[userID]
	if !ok {
		return nil, false
	}
	return conn.signer, true
}

// Info returns the public description of the user's connection.
func (c *Connections) Info(userID string) (Connection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conn, ok := c.byKey[userID]
	return conn.info, ok
}
