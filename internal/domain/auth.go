package domain

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	"github.com/hashicorp/go-retryablehttp"
)

// Credentials stores the personal access token used for Azure DevOps
// authentication. PATs are sent as HTTP basic auth with an empty username.
type Credentials struct {
	PAT string
}

// Validate checks that the credentials are usable.
// Returns a configuration error if the token is empty.
func (c *Credentials) Validate() error {
	if c == nil || c.PAT == "" {
		return &Error{
			Code:    ConfigurationError,
			Message: fmt.Sprintf("personal access token is required (set %s)", EnvPAT),
		}
	}
	return nil
}

// NewAuthenticatedClient returns an HTTP client pre-configured for Azure
// DevOps: the TLS policy from tlsConfig, PAT basic auth on every request,
// transport-level retries with exponential backoff for transient failures,
// and a per-request timeout.
// Returns an error if the credentials are invalid or the CA bundle cannot
// be loaded.
func NewAuthenticatedClient(creds *Credentials, tlsConfig TLSConfig) (*http.Client, error) {
	// Validate credentials first
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	// Build the base transport with the TLS policy applied
	baseTransport, err := NewTLSTransport(tlsConfig)
	if err != nil {
		return nil, err
	}

	// Wrap the base transport with authentication
	authedClient := &http.Client{
		Transport: &authenticatedTransport{
			base: baseTransport,
			pat:  creds.PAT,
		},
		Timeout: RequestTimeout,
	}

	// Add transport-level retries on top. The default retry policy covers
	// 429 and 5xx responses as well as connection resets.
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = authedClient
	retryClient.RetryMax = RetryTotal
	retryClient.RetryWaitMin = RetryWaitMin
	retryClient.RetryWaitMax = RetryWaitMax
	retryClient.Logger = nil // stdout/stderr noise would corrupt structured logs
	// Hand the final response back once retries are exhausted, so a
	// persistent 5xx/429 still surfaces its status code and body instead
	// of a generic giving-up error
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return retryClient.StandardClient(), nil
}

// NewTLSTransport builds an HTTP transport applying the certificate
// verification policy. First match wins: verification disabled, custom CA
// bundle (when the file exists), platform trust store.
func NewTLSTransport(tlsConfig TLSConfig) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if tlsConfig.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		return transport, nil
	}

	if tlsConfig.CABundle != "" {
		pem, err := os.ReadFile(tlsConfig.CABundle)
		if os.IsNotExist(err) {
			// Missing bundle falls through to the platform trust store
			return transport, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CA bundle %s: %w", tlsConfig.CABundle, err)
		}

		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA bundle %s", tlsConfig.CABundle)
		}

		transport.TLSClientConfig = &tls.Config{RootCAs: pool}
		return transport, nil
	}

	return transport, nil
}

// authenticatedTransport is an http.RoundTripper that adds the PAT basic
// auth header to every request.
type authenticatedTransport struct {
	base http.RoundTripper
	pat  string
}

// RoundTrip implements http.RoundTripper by adding the Authorization header.
func (t *authenticatedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	clonedReq := req.Clone(req.Context())

	// PATs use basic auth with an empty username
	encodedAuth := base64.StdEncoding.EncodeToString([]byte(":" + t.pat))
	clonedReq.Header.Set("Authorization", "Basic "+encodedAuth)

	return t.base.RoundTrip(clonedReq)
}
