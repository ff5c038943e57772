package ai

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrorKind classifies a provider failure into a human-actionable category.
type ErrorKind string

const (
	// ErrorKindAuth means the API key was rejected.
	ErrorKindAuth ErrorKind = "auth"
	// ErrorKindNotFound means the model or endpoint does not exist.
	ErrorKindNotFound ErrorKind = "not_found"
	// ErrorKindQuota means the account's spending quota is exhausted.
	ErrorKindQuota ErrorKind = "quota_exhausted"
	// ErrorKindRateLimited means the provider asked us to slow down.
	ErrorKindRateLimited ErrorKind = "rate_limited"
	// ErrorKindServer means a provider-side 5xx failure.
	ErrorKindServer ErrorKind = "server"
	// ErrorKindTimeout means the request exceeded its deadline.
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindDNS means the provider hostname could not be resolved.
	ErrorKindDNS ErrorKind = "dns"
	// ErrorKindTLS means the TLS handshake or certificate check failed.
	ErrorKindTLS ErrorKind = "tls"
	// ErrorKindConnRefused means the provider actively refused the connection.
	ErrorKindConnRefused ErrorKind = "connection_refused"
	// ErrorKindEmptyResponse means the provider answered without usable content.
	ErrorKindEmptyResponse ErrorKind = "empty_response"
	// ErrorKindRequest covers remaining malformed-request 4xx failures.
	ErrorKindRequest ErrorKind = "request"
)

// ProviderError is a classified provider failure. RetryAfter carries the
// provider's retry hint when one was supplied.
type ProviderError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider error (%s, HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider error (%s): %s", e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient. Quota exhaustion is
// deliberately excluded: it is a 429 that retrying cannot fix.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case ErrorKindServer, ErrorKindRateLimited, ErrorKindTimeout:
		return true
	}
	return false
}

// classifyHTTPError maps an HTTP error status plus the provider's error
// body fields to an error kind. A 429 whose error type signals quota
// exhaustion is permanent; a plain 429 is transient rate limiting.
func classifyHTTPError(statusCode int, errType, message string, retryAfter time.Duration) *ProviderError {
	perr := &ProviderError{
		StatusCode: statusCode,
		Message:    message,
		RetryAfter: retryAfter,
	}
	if perr.Message == "" {
		perr.Message = http.StatusText(statusCode)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		perr.Kind = ErrorKindAuth
	case statusCode == http.StatusNotFound:
		perr.Kind = ErrorKindNotFound
	case statusCode == http.StatusTooManyRequests:
		if strings.Contains(errType, "insufficient_quota") || strings.Contains(message, "quota") {
			perr.Kind = ErrorKindQuota
		} else {
			perr.Kind = ErrorKindRateLimited
		}
	case statusCode >= 500:
		perr.Kind = ErrorKindServer
	default:
		perr.Kind = ErrorKindRequest
	}
	return perr
}

// classifyTransportError maps low-level network failures to distinct kinds
// so each produces actionable operator guidance instead of a generic
// request failure.
func classifyTransportError(err error) *ProviderError {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ProviderError{
			Kind:    ErrorKindDNS,
			Message: fmt.Sprintf("cannot resolve provider host %s, check network and base URL", dnsErr.Name),
			Err:     err,
		}
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) || errors.As(err, &hostnameErr) {
		return &ProviderError{
			Kind:    ErrorKindTLS,
			Message: "TLS certificate verification failed, check base URL and system certificates",
			Err:     err,
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &ProviderError{
			Kind:    ErrorKindConnRefused,
			Message: "provider refused the connection, check base URL and port",
			Err:     err,
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ProviderError{
			Kind:    ErrorKindTimeout,
			Message: "provider request timed out",
			Err:     err,
		}
	}

	return &ProviderError{
		Kind:    ErrorKindRequest,
		Message: err.Error(),
		Err:     err,
	}
}

// parseRetryAfter reads a Retry-After header in either seconds or
// HTTP-date form, returning zero when absent or unparseable.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
