package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrAlreadyActive = errors.New("session already active")
	ErrAlreadyEnded  = errors.New("session already ended")
	ErrClosed        = errors.New("session manager closed")
)

type Session struct {
	CallSID        string    `json:"call_sid"`
	Sender         string    `json:"sender"`
	Transport      string    `json:"transport"`
	Status         Status    `json:"status"`
	EndReason      EndReason `json:"end_reason,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	EndedAt        time.Time `json:"ended_at,omitzero"`
}

// Hook observes a lifecycle transition. It runs outside the manager lock.
type Hook func(*Session)

// Manager tracks the calls this process is serving, keyed by call SID, and
// fires a hook exactly once per start and once per end.
type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	inactivityTimeout time.Duration
	closed            bool
	onStart           Hook
	onEnd             Hook
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 10 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) SetStartHook(hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStart = hook
}

func (m *Manager) SetEndHook(hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnd = hook
}

func (m *Manager) InactivityTimeout() time.Duration {
	return m.inactivityTimeout
}

// Start registers a new active session. An empty callSID gets a generated
// one. Starting a SID that is still active fails with ErrAlreadyActive; an
// ended SID may be started again. After Close every Start fails with
// ErrClosed.
func (m *Manager) Start(callSID, sender, transport string) (*Session, error) {
	callSID = strings.TrimSpace(callSID)
	if callSID == "" {
		callSID = uuid.NewString()
	}
	now := time.Now().UTC()
	s := &Session{
		CallSID:        callSID,
		Sender:         sender,
		Transport:      transport,
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if existing, ok := m.sessions[callSID]; ok && existing.Status == StatusActive {
		m.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	m.sessions[callSID] = s
	hook := m.onStart
	out, seen := clone(s), clone(s)
	m.mu.Unlock()

	if hook != nil {
		hook(seen)
	}
	return out, nil
}

func (m *Manager) Get(callSID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[callSID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func (m *Manager) Touch(callSID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[callSID]
	if !ok {
		return ErrNotFound
	}
	if s.Status != StatusActive {
		return ErrAlreadyEnded
	}
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// End marks the session ended and fires the end hook. Ending twice returns
// ErrAlreadyEnded and fires nothing.
func (m *Manager) End(callSID string, reason EndReason) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[callSID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	if s.Status != StatusActive {
		m.mu.Unlock()
		return nil, ErrAlreadyEnded
	}
	markEnded(s, reason, time.Now().UTC())
	hook := m.onEnd
	out, seen := clone(s), clone(s)
	m.mu.Unlock()

	if hook != nil {
		hook(seen)
	}
	return out, nil
}

// Close stops accepting sessions, ends every active one with reason and
// returns how many it ended. The end hook fires once for each. Closing twice
// ends nothing.
func (m *Manager) Close(reason EndReason) int {
	now := time.Now().UTC()
	var ended []*Session

	m.mu.Lock()
	m.closed = true
	for _, s := range m.sessions {
		if s.Status != StatusActive {
			continue
		}
		markEnded(s, reason, now)
		ended = append(ended, clone(s))
	}
	hook := m.onEnd
	m.mu.Unlock()

	if hook != nil {
		for _, s := range ended {
			hook(s)
		}
	}
	return len(ended)
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

// expireInactive ends stale active sessions and forgets ended ones once
// they have been idle for the same timeout.
func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for sid, s := range m.sessions {
		if s.Status != StatusActive {
			if now.Sub(s.EndedAt) >= m.inactivityTimeout {
				delete(m.sessions, sid)
			}
			continue
		}
		if now.Sub(s.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		markEnded(s, EndReasonExpired, now)
		expired = append(expired, clone(s))
	}
	hook := m.onEnd
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func markEnded(s *Session, reason EndReason, at time.Time) {
	s.Status = StatusEnded
	s.EndReason = reason
	s.EndedAt = at
	s.LastActivityAt = at
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
