package session

import "time"

// StartRequest is the payload transports use to report a new session.
type StartRequest struct {
	CallSID   string `json:"call_sid"`
	Sender    string `json:"sender"`
	Transport string `json:"transport"`
}

// EndReason explains why a session stopped.
type EndReason string

const (
	EndReasonHangup  EndReason = "hangup"
	EndReasonStop    EndReason = "stream_stop"
	EndReasonClosed  EndReason = "stream_closed"
	EndReasonExpired EndReason = "expired"
	EndReasonDrain   EndReason = "shutdown"
)

// StartResponse returns registered session metadata.
type StartResponse struct {
	CallSID         string    `json:"call_sid"`
	Sender          string    `json:"sender"`
	Transport       string    `json:"transport"`
	Status          Status    `json:"status"`
	StartedAt       time.Time `json:"started_at"`
	InactivityTTLMS int64     `json:"inactivity_ttl_ms"`
	BridgeEnabled   bool      `json:"bridge_enabled"`
}
