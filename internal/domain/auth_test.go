package domain

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestNewAuthenticatedClientRequiresPAT(t *testing.T) {
	_, err := NewAuthenticatedClient(&Credentials{}, TLSConfig{})
	if err == nil {
		t.Fatal("expected error for empty PAT")
	}

	domainErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if domainErr.Code != ConfigurationError {
		t.Errorf("Code = %d, want %d", domainErr.Code, ConfigurationError)
	}
}

func TestAuthenticatedClientSetsBasicAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewAuthenticatedClient(&Credentials{PAT: "secret-token"}, TLSConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	// PATs are basic auth with an empty username
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(":secret-token"))
	if gotAuth != want {
		t.Errorf("Authorization = %q, want %q", gotAuth, want)
	}
}

func TestAuthenticatedClientRetriesTransientStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewAuthenticatedClient(&Credentials{PAT: "token"}, TLSConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("final status = %d, want 200", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server saw %d calls, want 2 (one retry)", got)
	}
}

func TestNewTLSTransportInsecure(t *testing.T) {
	transport, err := NewTLSTransport(TLSConfig{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transport.TLSClientConfig == nil || !transport.TLSClientConfig.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify to be set")
	}
}

func TestNewTLSTransportMissingBundleFallsBack(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-bundle.pem")

	transport, err := NewTLSTransport(TLSConfig{CABundle: missing})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transport.TLSClientConfig != nil && transport.TLSClientConfig.RootCAs != nil {
		t.Error("expected platform trust store for missing bundle")
	}
}

func TestNewTLSTransportRejectsEmptyBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pem")
	if err := os.WriteFile(path, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := NewTLSTransport(TLSConfig{CABundle: path})
	if err == nil {
		t.Fatal("expected error for bundle without certificates")
	}
}
