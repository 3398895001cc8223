// Package bridge notifies the cross-channel bridge about voice session
// lifecycle events.
//
// Notifications are best effort: every outcome, including remote rejection
// and transport failure, ends in a log entry and never in an error returned
// to the caller. There is no retry.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/bridgenotify/internal/reliability"
)

// DefaultTimeout bounds a single notification round trip.
const DefaultTimeout = 5 * time.Second

// Recorder receives one observation per notification attempt.
type Recorder interface {
	ObserveBridgeNotification(event, outcome string, latency time.Duration)
}

// Notifier posts lifecycle events to the bridge. It keeps no per-call state
// and is safe for concurrent use.
type Notifier struct {
	client   *http.Client
	logger   *zap.Logger
	recorder Recorder
	inflight sync.WaitGroup
}

type Option func(*Notifier)

// WithHTTPClient replaces the notifier's HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) {
		if c != nil {
			n.client = c
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(n *Notifier) {
		n.recorder = r
	}
}

func NewNotifier(logger *zap.Logger, timeout time.Duration, opts ...Option) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	n := &Notifier{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// TargetURL strips trailing slashes from bridgeURL and appends path.
func TargetURL(bridgeURL, path string) string {
	return strings.TrimRight(bridgeURL, "/") + path
}

// NotifySessionStarted tells the bridge a session began so it can register
// the call for cross-channel routing before any utterance flows.
func (n *Notifier) NotifySessionStarted(ctx context.Context, bridgeURL, callSID, sender, transport string) {
	n.send(ctx, sessionStarted, bridgeURL, callSID, SessionStartedEvent{
		CallSID:   callSID,
		Sender:    sender,
		Transport: transport,
	})
}

// NotifyCallEnded tells the bridge a session ended so it stops routing
// responses to it.
func (n *Notifier) NotifyCallEnded(ctx context.Context, bridgeURL, callSID string) {
	n.send(ctx, callEnded, bridgeURL, callSID, CallEndedEvent{CallSID: callSID})
}

// Go runs fn on its own goroutine and tracks it until it returns.
func (n *Notifier) Go(fn func()) {
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		fn()
	}()
}

// Wait blocks until every notification started with Go has finished or ctx
// is done.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) send(ctx context.Context, lc lifecycle, bridgeURL, callSID string, payload any) {
	started := time.Now()
	log := n.logger.With(zap.String("call_sid", callSID))

	body, err := json.Marshal(payload)
	if err != nil {
		log.Warn("failed to encode bridge "+lc.phrase+" notification", zap.Error(err))
		n.record(lc, OutcomeFailed, started)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, TargetURL(bridgeURL, lc.path), bytes.NewReader(body))
	if err != nil {
		log.Warn("failed to notify bridge of "+lc.phrase, zap.Error(err))
		n.record(lc, OutcomeFailed, started)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := n.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			log.Debug("bridge "+lc.phrase+" notification abandoned", zap.Error(err))
			n.record(lc, OutcomeAbandoned, started)
			return
		}
		log.Warn("failed to notify bridge of "+lc.phrase,
			zap.Error(err),
			zap.String("error_kind", reliability.ClassifyTransportError(err)),
		)
		n.record(lc, OutcomeFailed, started)
		return
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		log.Warn("bridge "+strings.TrimPrefix(lc.path, "/")+" notification returned error",
			zap.Int("status", res.StatusCode),
			zap.Bool("transient", reliability.IsTransientHTTPStatus(res.StatusCode)),
		)
		n.record(lc, OutcomeRejected, started)
		return
	}
	log.Debug("notified bridge of " + lc.phrase)
	n.record(lc, OutcomeOK, started)
}

func (n *Notifier) record(lc lifecycle, outcome string, started time.Time) {
	if n.recorder == nil {
		return
	}
	n.recorder.ObserveBridgeNotification(lc.event, outcome, time.Since(started))
}

// NotifySessionStarted sends a session-started notification with a fresh
// client and the global zap logger.
func NotifySessionStarted(ctx context.Context, bridgeURL, callSID, sender, transport string) {
	NewNotifier(zap.L(), DefaultTimeout).NotifySessionStarted(ctx, bridgeURL, callSID, sender, transport)
}

// NotifyCallEnded sends a call-ended notification with a fresh client and
// the global zap logger.
func NotifyCallEnded(ctx context.Context, bridgeURL, callSID string) {
	NewNotifier(zap.L(), DefaultTimeout).NotifyCallEnded(ctx, bridgeURL, callSID)
}
