package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/bridgenotify/internal/protocol"
	"github.com/ent0n29/bridgenotify/internal/session"
)

// TransportTwilio names sessions that arrive over the telephony media stream.
const TransportTwilio = "twilio"

// handleTwilioStream owns one media stream connection. The stream's start
// frame registers the call; a stop frame or the socket closing ends it.
func (s *Server) handleTwilioStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.observeSessionEvent("ws_connected")

	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		return nil
	})

	var callSID string
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))

		parsed, err := protocol.ParseStreamMessage(data)
		if err != nil {
			s.logger.Debug("ignoring media stream frame", zap.Error(err))
			continue
		}
		if ev, ok := protocol.EventOf(parsed); ok && s.metrics != nil {
			s.metrics.WSMessages.WithLabelValues("inbound", string(ev)).Inc()
		}

		switch m := parsed.(type) {
		case protocol.Start:
			if callSID != "" {
				continue
			}
			sess, err := s.sessions.Start(m.Start.CallSID, m.Sender(), TransportTwilio)
			if err != nil {
				s.logger.Warn("media stream start rejected",
					zap.String("call_sid", m.Start.CallSID),
					zap.String("stream_sid", m.StreamSID),
					zap.Error(err),
				)
				continue
			}
			callSID = sess.CallSID
		case protocol.Stop:
			if callSID != "" {
				s.endStreamSession(callSID, session.EndReasonStop)
				callSID = ""
			}
		case protocol.Media, protocol.Mark, protocol.DTMF:
			if callSID != "" {
				_ = s.sessions.Touch(callSID)
			}
		}
	}

	if callSID != "" {
		s.endStreamSession(callSID, session.EndReasonClosed)
	}
	s.observeSessionEvent("ws_disconnected")
}

func (s *Server) endStreamSession(callSID string, reason session.EndReason) {
	_, err := s.sessions.End(callSID, reason)
	if err == nil || errors.Is(err, session.ErrAlreadyEnded) {
		return
	}
	s.logger.Debug("media stream end ignored", zap.String("call_sid", callSID), zap.Error(err))
}

func (s *Server) observeSessionEvent(event string) {
	if s.metrics == nil {
		return
	}
	s.metrics.SessionEvents.WithLabelValues(event).Inc()
}
