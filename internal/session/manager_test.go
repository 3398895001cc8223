package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestManagerStartGetEnd(t *testing.T) {
	m := NewManager(time.Minute)
	s, err := m.Start("CA1", "+15551234567", "twilio")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	got, err := m.Get(s.CallSID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Sender != "+15551234567" || got.Transport != "twilio" || got.Status != StatusActive {
		t.Fatalf("unexpected session state: %+v", got)
	}

	ended, err := m.End(s.CallSID, EndReasonHangup)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded || ended.EndReason != EndReasonHangup {
		t.Fatalf("ended = %+v, want status ended with hangup reason", ended)
	}
	if ended.EndedAt.IsZero() {
		t.Fatalf("EndedAt should be set")
	}
}

func TestManagerStartGeneratesCallSID(t *testing.T) {
	m := NewManager(time.Minute)
	s, err := m.Start("  ", "alice", "discord")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.CallSID == "" {
		t.Fatalf("CallSID should be generated")
	}
}

func TestManagerRejectsDuplicateActiveStart(t *testing.T) {
	m := NewManager(time.Minute)
	if _, err := m.Start("CA1", "a", "twilio"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := m.Start("CA1", "a", "twilio"); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("second Start() error = %v, want ErrAlreadyActive", err)
	}
	if _, err := m.End("CA1", EndReasonHangup); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if _, err := m.Start("CA1", "a", "twilio"); err != nil {
		t.Fatalf("restart after end error = %v", err)
	}
}

func TestManagerHooksFireOncePerTransition(t *testing.T) {
	m := NewManager(time.Minute)
	var starts, ends atomic.Int32
	m.SetStartHook(func(s *Session) {
		if s.Status != StatusActive {
			t.Errorf("start hook got status %q", s.Status)
		}
		starts.Add(1)
	})
	m.SetEndHook(func(s *Session) {
		if s.Status != StatusEnded {
			t.Errorf("end hook got status %q", s.Status)
		}
		ends.Add(1)
	})

	if _, err := m.Start("CA1", "a", "twilio"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := m.End("CA1", EndReasonStop); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if _, err := m.End("CA1", EndReasonClosed); !errors.Is(err, ErrAlreadyEnded) {
		t.Fatalf("second End() error = %v, want ErrAlreadyEnded", err)
	}
	if _, err := m.End("CA-missing", EndReasonClosed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("End(missing) error = %v, want ErrNotFound", err)
	}

	if starts.Load() != 1 || ends.Load() != 1 {
		t.Fatalf("hooks fired starts=%d ends=%d, want 1/1", starts.Load(), ends.Load())
	}
}

func TestManagerTouchEndedSession(t *testing.T) {
	m := NewManager(time.Minute)
	if _, err := m.Start("CA1", "a", "twilio"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := m.Touch("CA1"); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	if _, err := m.End("CA1", EndReasonHangup); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if err := m.Touch("CA1"); !errors.Is(err, ErrAlreadyEnded) {
		t.Fatalf("Touch(ended) error = %v, want ErrAlreadyEnded", err)
	}
	if err := m.Touch("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Touch(missing) error = %v, want ErrNotFound", err)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	var (
		mu      sync.Mutex
		expired []*Session
	)
	m.SetEndHook(func(s *Session) {
		mu.Lock()
		defer mu.Unlock()
		expired = append(expired, s)
	})
	if _, err := m.Start("CA1", "a", "twilio"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	time.Sleep(90 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(expired) != 1 {
		t.Fatalf("expired hooks = %d, want 1", len(expired))
	}
	if expired[0].EndReason != EndReasonExpired {
		t.Fatalf("EndReason = %q, want %q", expired[0].EndReason, EndReasonExpired)
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d, want 0", m.ActiveCount())
	}
}

func TestManagerJanitorForgetsEndedSessions(t *testing.T) {
	m := NewManager(20 * time.Millisecond)
	if _, err := m.Start("CA1", "a", "twilio"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := m.End("CA1", EndReasonHangup); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	m.expireInactive()
	if _, err := m.Get("CA1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound after prune", err)
	}
}

func TestManagerCloseEndsActiveSessions(t *testing.T) {
	m := NewManager(time.Minute)
	for _, sid := range []string{"CA1", "CA2", "CA3"} {
		if _, err := m.Start(sid, "a", "twilio"); err != nil {
			t.Fatalf("Start(%s) error = %v", sid, err)
		}
	}
	if _, err := m.End("CA3", EndReasonHangup); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	var ends atomic.Int32
	m.SetEndHook(func(s *Session) {
		if s.EndReason != EndReasonDrain {
			t.Errorf("EndReason = %q, want %q", s.EndReason, EndReasonDrain)
		}
		ends.Add(1)
	})

	if got := m.Close(EndReasonDrain); got != 2 {
		t.Fatalf("Close() = %d, want 2", got)
	}
	if ends.Load() != 2 {
		t.Fatalf("end hooks = %d, want 2", ends.Load())
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d, want 0", m.ActiveCount())
	}
	if got := m.Close(EndReasonDrain); got != 0 {
		t.Fatalf("second Close() = %d, want 0", got)
	}
}

func TestManagerStartAfterCloseFails(t *testing.T) {
	m := NewManager(time.Minute)
	var starts atomic.Int32
	m.SetStartHook(func(*Session) { starts.Add(1) })

	m.Close(EndReasonDrain)
	if _, err := m.Start("CA-late", "a", "twilio"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Start() after Close error = %v, want ErrClosed", err)
	}
	if starts.Load() != 0 {
		t.Fatalf("start hooks = %d, want 0", starts.Load())
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d, want 0", m.ActiveCount())
	}
}
