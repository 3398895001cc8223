package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ent0n29/bridgenotify/internal/bridge"
	"github.com/ent0n29/bridgenotify/internal/config"
	"github.com/ent0n29/bridgenotify/internal/httpapi"
	"github.com/ent0n29/bridgenotify/internal/observability"
	"github.com/ent0n29/bridgenotify/internal/policy"
	"github.com/ent0n29/bridgenotify/internal/session"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions *session.Manager
	Notifier *bridge.Notifier
	Metrics  *observability.Metrics

	// Drain waits for in-flight bridge notifications; call it on shutdown.
	Drain func(ctx context.Context) error
}

func Build(cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	return BuildWith(cfg, logger, nil)
}

func BuildWith(cfg config.Config, logger *zap.Logger, metrics *observability.Metrics) (*BuildResult, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if metrics == nil {
		metrics = observability.NewMetrics(cfg.MetricsNamespace)
	}

	notifier := bridge.NewNotifier(
		logger.Named("bridge"),
		cfg.BridgeNotifyTimeout,
		bridge.WithRecorder(metrics),
	)
	if cfg.BridgeEnabled() {
		logger.Info("bridge notifications enabled", zap.String("bridge_url", policy.RedactURL(cfg.BridgeURL)), zap.Duration("timeout", cfg.BridgeNotifyTimeout))
	} else {
		logger.Warn("BRIDGE_URL not set; session lifecycle will not be reported")
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	wireLifecycle(cfg, sessions, notifier, metrics, logger)

	api := httpapi.New(cfg, sessions, metrics, logger.Named("httpapi"))

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Notifier: notifier,
		Metrics:  metrics,
		Drain:    notifier.Wait,
	}, nil
}

// wireLifecycle reports every session start and end to the bridge without
// blocking the transport that triggered it.
func wireLifecycle(cfg config.Config, sessions *session.Manager, notifier *bridge.Notifier, metrics *observability.Metrics, logger *zap.Logger) {
	sessions.SetStartHook(func(s *session.Session) {
		metrics.SessionEvents.WithLabelValues("started").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
		logger.Info("session started",
			zap.String("call_sid", s.CallSID),
			zap.String("sender", policy.MaskSender(s.Sender)),
			zap.String("transport", s.Transport),
		)
		if !cfg.BridgeEnabled() {
			return
		}
		notifier.Go(func() {
			notifier.NotifySessionStarted(context.Background(), cfg.BridgeURL, s.CallSID, s.Sender, s.Transport)
		})
	})
	sessions.SetEndHook(func(s *session.Session) {
		metrics.SessionEvents.WithLabelValues(string(s.EndReason)).Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
		logger.Info("session ended",
			zap.String("call_sid", s.CallSID),
			zap.String("reason", string(s.EndReason)),
		)
		if !cfg.BridgeEnabled() {
			return
		}
		notifier.Go(func() {
			notifier.NotifyCallEnded(context.Background(), cfg.BridgeURL, s.CallSID)
		})
	})
}
