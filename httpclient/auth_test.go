package httpclient

import (
	"net/http"
	"testing"
)

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "http://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestBearerAuth(t *testing.T) {
	req := newRequest(t)
	BearerAuth("sk-test").apply(req)
	if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("got %q, want %q", got, "Bearer sk-test")
	}
}

func TestBearerAuth_EmptyTokenSkipped(t *testing.T) {
	req := newRequest(t)
	BearerAuth("").apply(req)
	if got := req.Header.Get("Authorization"); got != "" {
		t.Errorf("expected no Authorization header, got %q", got)
	}
}

func TestHeaderAuth(t *testing.T) {
	req := newRequest(t)
	HeaderAuth("xi-api-key", "secret").apply(req)
	if got := req.Header.Get("xi-api-key"); got != "secret" {
		t.Errorf("got %q, want %q", got, "secret")
	}
}

func TestCustomAuth(t *testing.T) {
	req := newRequest(t)
	CustomAuth(func(r *http.Request) { r.Header.Set("X-Signed", "yes") }).apply(req)
	if got := req.Header.Get("X-Signed"); got != "yes" {
		t.Errorf("custom auth not applied, got %q", got)
	}
}

func TestNilAuth(t *testing.T) {
	var a *AuthConfig
	req := newRequest(t)
	a.apply(req)
	if len(req.Header) != 0 {
		t.Errorf("nil auth should not set headers, got %v", req.Header)
	}
}
