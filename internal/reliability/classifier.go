// Package reliability classifies failed outbound calls so logs and metrics
// can tell a slow bridge from a missing one.
package reliability

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strings"
	"syscall"
)

// Transport failure kinds.
const (
	KindTimeout  = "timeout"
	KindDNS      = "dns"
	KindRefused  = "refused"
	KindReset    = "reset"
	KindTLS      = "tls"
	KindCanceled = "canceled"
	KindOther    = "other"
)

// ClassifyTransportError buckets a request error. It returns "" for nil.
func ClassifyTransportError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindRefused
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return KindReset
	}
	var (
		certErr     *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		recordErr   tls.RecordHeaderError
	)
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) || errors.As(err, &hostnameErr) || errors.As(err, &recordErr) {
		return KindTLS
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if strings.Contains(strings.ToLower(err.Error()), "tls:") {
		return KindTLS
	}
	return KindOther
}

// IsTransientHTTPStatus reports statuses that usually clear on their own.
func IsTransientHTTPStatus(code int) bool {
	switch code {
	case 408, 425, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
