package resolver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/payphone/payphone/internal/phone"
)

const defaultLookupTimeout = 15 * time.Second

// Snapshot is a consistent copy of a session's compose state.
type Snapshot struct {
	Input   string
	Digits  string
	Result  Result
	Pending bool
}

// Session is one user's compose state. A lookup starts whenever the digits
// reach exactly phone.LookupDigits and differ from the last looked-up value.
// Every input change bumps seq; a lookup result is applied only if its seq is
// still current.
type Session struct {
	resolver *Resolver
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	seq     uint64
	input   string
	digits  string
	pending bool
	result  Result
	done    chan struct{}
}

// NewSession creates an empty session.
func NewSession(resolver *Resolver, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &Session{
		resolver: resolver,
		timeout:  timeout,
		logger:   resolver.logger,
		result:   Placeholder(""),
	}
}

// Update records new raw input and starts a lookup when it holds exactly
// ten digits and nothing but digits, '+' and spaces.
func (s *Session) Update(ctx context.Context, raw string) Snapshot {
	digits := phone.Digits(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = raw

	if len(digits) != phone.LookupDigits || !phone.IsDigits(digits) {
		s.seq++
		s.digits = digits
		s.pending = false
		s.result = Placeholder(digits)
		s.done = nil
		return s.snapshotLocked()
	}
	if digits == s.digits && (s.pending || s.result.Kind == KindResolved || s.result.Kind == KindNotRegistered) {
		return s.snapshotLocked()
	}

	s.seq++
	seq := s.seq
	s.digits = digits
	s.pending = true
	s.result = Placeholder(digits)
	done := make(chan struct{})
	s.done = done

	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	go func() {
		defer close(done)
		defer cancel()
		s.apply(seq, s.resolver.Resolve(lookupCtx, digits))
	}()
	return s.snapshotLocked()
}

func (s *Session) apply(seq uint64, res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		s.logger.Debug("discarding stale lookup", "phone", res.Phone, "state", string(res.Kind))
		return
	}
	s.pending = false
	s.result = res
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{Input: s.input, Digits: s.digits, Result: s.result, Pending: s.pending}
}

// Settle waits until the latest lookup, if any, has finished and returns the
// resulting state.
func (s *Session) Settle(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		done := s.done
		s.mu.Unlock()
		if done == nil {
			return s.Snapshot(), nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}
		s.mu.Lock()
		latest := s.done == done
		s.mu.Unlock()
		if latest {
			return s.Snapshot(), nil
		}
	}
}

// Sessions holds one Session per user.
type Sessions struct {
	resolver *Resolver
	timeout  time.Duration

	mu     sync.Mutex
	byUser map[string]*Session
}

// NewSessions creates an empty registry.
func NewSessions(resolver *Resolver, timeout time.Duration) *Sessions {
	return &Sessions{resolver: resolver, timeout: timeout, byUser: make(map[string]*Session)}
}

// For returns the user's session, creating it on first use.
func (s *Sessions) For(userID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byUser[userID]
	if !ok {
		session = NewSession(s.resolver, s.timeout)
		s.byUser[userID] = session
	}
	return session
}

// Drop forgets the user's session.
func (s *Sessions) Drop(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
}

// DeleteByUser drops the compose session of a deleted user.
func (s *Sessions) DeleteByUser(_ context.Context, userID string) error {
	s.Drop(userID)
	return nil
}
