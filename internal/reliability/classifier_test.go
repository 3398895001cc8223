package reliability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"
)

func TestIsTransientHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tc := range cases {
		got := IsTransientHTTPStatus(tc.code)
		if got != tc.want {
			t.Fatalf("IsTransientHTTPStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestClassifyTransportErrorWrapped(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"canceled", &url.Error{Op: "Post", URL: "http://x", Err: context.Canceled}, KindCanceled},
		{"deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), KindTimeout},
		{"dns", &url.Error{Op: "Post", URL: "http://x", Err: &net.OpError{Op: "dial", Err: &net.DNSError{Err: "no such host", Name: "x"}}}, KindDNS},
		{"deadline os", &url.Error{Op: "Post", URL: "http://x", Err: os.ErrDeadlineExceeded}, KindTimeout},
		{"tls text", errors.New("remote error: tls: handshake failure"), KindTLS},
		{"other", errors.New("boom"), KindOther},
	}
	for _, tc := range cases {
		if got := ClassifyTransportError(tc.err); got != tc.want {
			t.Fatalf("%s: ClassifyTransportError() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestClassifyTransportErrorRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	client := &http.Client{Timeout: time.Second}
	_, err := client.Post(addr, "application/json", nil)
	if err == nil {
		t.Fatalf("Post() to closed server should fail")
	}
	if got := ClassifyTransportError(err); got != KindRefused {
		t.Fatalf("ClassifyTransportError(%v) = %q, want %q", err, got, KindRefused)
	}
}

func TestClassifyTransportErrorTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()

	client := &http.Client{Timeout: time.Second}
	_, err := client.Post(srv.URL, "application/json", nil)
	if err == nil {
		t.Fatalf("Post() with untrusted cert should fail")
	}
	if got := ClassifyTransportError(err); got != KindTLS {
		t.Fatalf("ClassifyTransportError(%v) = %q, want %q", err, got, KindTLS)
	}
}
