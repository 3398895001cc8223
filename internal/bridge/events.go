package bridge

// SessionStartedEvent is the body posted to /session-started.
type SessionStartedEvent struct {
	CallSID   string `json:"call_sid"`
	Sender    string `json:"sender"`
	Transport string `json:"transport"`
}

// CallEndedEvent is the body posted to /call-ended.
type CallEndedEvent struct {
	CallSID string `json:"call_sid"`
}

const (
	SessionStartedPath = "/session-started"
	CallEndedPath      = "/call-ended"
)

// Notification outcomes reported to the Recorder.
const (
	OutcomeOK        = "ok"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeAbandoned = "abandoned"
)

type lifecycle struct {
	event  string
	path   string
	phrase string
}

var (
	sessionStarted = lifecycle{event: "session_started", path: SessionStartedPath, phrase: "session start"}
	callEnded      = lifecycle{event: "call_ended", path: CallEndedPath, phrase: "session end"}
)
