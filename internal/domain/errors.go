package domain

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind classifies a transport client failure.
// Every failure maps to exactly one kind so handlers can render an
// actionable message without inspecting wrapped causes.
type ErrorKind int

const (
	// ErrTLS indicates certificate verification or TLS handshake failure.
	ErrTLS ErrorKind = iota
	// ErrProxy indicates a failure establishing the connection through an
	// HTTP proxy.
	ErrProxy
	// ErrConnection indicates the host could not be reached (DNS failure,
	// connection refused).
	ErrConnection
	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout
	// ErrHTTPStatus indicates the server answered with a non-success
	// status code.
	ErrHTTPStatus
	// ErrUnclassified covers everything else.
	ErrUnclassified
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case ErrTLS:
		return "tls"
	case ErrProxy:
		return "proxy"
	case ErrConnection:
		return "connection"
	case ErrTimeout:
		return "timeout"
	case ErrHTTPStatus:
		return "http-status"
	case ErrUnclassified:
		return "unclassified"
	default:
		return "unknown"
	}
}

// ClientError is a classified transport client failure.
// StatusCode is set only for ErrHTTPStatus.
type ClientError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	cause      error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *ClientError) Unwrap() error {
	return e.cause
}

// NewHTTPStatusError builds a ClientError for a non-success response.
// The message carries both the numeric code and the response body so the
// caller sees what the server actually said.
func NewHTTPStatusError(statusCode int, body []byte) *ClientError {
	return &ClientError{
		Kind:       ErrHTTPStatus,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP error %d: %s", statusCode, strings.TrimSpace(string(body))),
	}
}

// NotFoundError reports that a work item targeted by an update does not
// exist. Distinct from the lookup path, where a missing item is an expected
// outcome rather than an error.
type NotFoundError struct {
	ID int
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("work item %d does not exist", e.ID)
}

// ClassifyRequestError maps a low-level request failure to a ClientError
// with exactly one kind. Classification order matters: TLS and proxy
// failures surface as url.Error-wrapped net.OpErrors too, so the more
// specific checks run first.
func ClassifyRequestError(err error) *ClientError {
	if err == nil {
		return nil
	}

	// Already classified
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}

	if isTLSError(err) {
		return &ClientError{
			Kind:    ErrTLS,
			Message: fmt.Sprintf("SSL certificate verification failed: %v (set %s=true to disable verification, or point %s at your CA bundle)", err, EnvDisableSSLVerify, EnvCABundle),
			cause:   err,
		}
	}

	// The http proxy dialer prefixes its errors with "proxyconnect"
	if strings.Contains(err.Error(), "proxyconnect") {
		return &ClientError{
			Kind:    ErrProxy,
			Message: fmt.Sprintf("proxy connection failed: %v (check HTTP_PROXY/HTTPS_PROXY settings)", err),
			cause:   err,
		}
	}

	if isTimeoutError(err) {
		return &ClientError{
			Kind:    ErrTimeout,
			Message: fmt.Sprintf("request timed out after %s: %v", RequestTimeout, err),
			cause:   err,
		}
	}

	if isConnectionError(err) {
		return &ClientError{
			Kind:    ErrConnection,
			Message: fmt.Sprintf("connection to Azure DevOps failed: %v (check the organization URL and network access)", err),
			cause:   err,
		}
	}

	return &ClientError{
		Kind:    ErrUnclassified,
		Message: fmt.Sprintf("unexpected error: %v", err),
		cause:   err,
	}
}

// isTLSError reports whether the error stems from certificate verification
// or the TLS handshake.
func isTLSError(err error) bool {
	var (
		certVerify   *tls.CertificateVerificationError
		recordHeader tls.RecordHeaderError
		unknownAuth  x509.UnknownAuthorityError
		certInvalid  x509.CertificateInvalidError
		hostname     x509.HostnameError
	)
	return errors.As(err, &certVerify) ||
		errors.As(err, &recordHeader) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &certInvalid) ||
		errors.As(err, &hostname)
}

// isTimeoutError reports whether the error is a deadline or timeout.
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isConnectionError reports whether the error is a failure to reach the
// host at all.
func isConnectionError(err error) bool {
	var (
		dnsErr *net.DNSError
		opErr  *net.OpError
	)
	return errors.As(err, &dnsErr) || errors.As(err, &opErr)
}
