package bridge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestTargetURL(t *testing.T) {
	cases := []struct {
		base string
		path string
		want string
	}{
		{"https://bridge.example", SessionStartedPath, "https://bridge.example/session-started"},
		{"https://bridge.example/", SessionStartedPath, "https://bridge.example/session-started"},
		{"https://bridge.example///", CallEndedPath, "https://bridge.example/call-ended"},
		{"http://localhost:9000/echo/", CallEndedPath, "http://localhost:9000/echo/call-ended"},
		{"", CallEndedPath, "/call-ended"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, TargetURL(tc.base, tc.path), "base %q", tc.base)
	}
}

func TestTargetURLNormalizationIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		host := rapid.StringMatching(`[a-z]{1,12}(\.[a-z]{2,6})?`).Draw(t, "host")
		prefix := rapid.StringMatching(`(/[a-z0-9-]{1,8}){0,3}`).Draw(t, "prefix")
		slashes := rapid.IntRange(0, 4).Draw(t, "slashes")
		path := rapid.SampledFrom([]string{SessionStartedPath, CallEndedPath}).Draw(t, "path")

		bare := "https://" + host + prefix
		base := bare + strings.Repeat("/", slashes)

		got := TargetURL(base, path)
		if got != bare+path {
			t.Fatalf("TargetURL(%q) = %q, want %q", base, got, bare+path)
		}
		trimmed := strings.TrimRight(base, "/")
		if again := TargetURL(trimmed, path); again != got {
			t.Fatalf("normalizing twice changed target: %q vs %q", again, got)
		}
	})
}

func TestSessionStartedEventKeepsFields(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ev := SessionStartedEvent{
			CallSID:   rapid.String().Draw(t, "call_sid"),
			Sender:    rapid.String().Draw(t, "sender"),
			Transport: rapid.String().Draw(t, "transport"),
		}
		fields := encodeFields(t, ev)
		if len(fields) != 3 {
			t.Fatalf("got %d keys, want 3: %v", len(fields), fields)
		}
		if fields["call_sid"] != ev.CallSID || fields["sender"] != ev.Sender || fields["transport"] != ev.Transport {
			t.Fatalf("fields %v do not match event %+v", fields, ev)
		}
	})
}
