package cloudflare

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kbukum/sttkit/errors"
	"github.com/kbukum/sttkit/logger"
	"github.com/kbukum/sttkit/transcription"
)

const successPayload = `{
  "success": true,
  "errors": [],
  "result": {
    "text": "hello world test",
    "word_count": 3,
    "words": [
      {"word": "hello", "start": 0, "end": 0.4},
      {"word": "world", "start": 0.4, "end": 0.9},
      {"word": "test", "start": 0.9, "end": 1.3}
    ],
    "transcription_info": {"language": "en", "language_probability": 0.91}
  }
}`

func env(values map[string]string) transcription.CredentialSource {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func credentialed() transcription.CredentialSource {
	return env(map[string]string{TokenEnv: "cf-token", AccountEnv: "acc-123"})
}

func newProvider(t *testing.T, url string, lookup transcription.CredentialSource) *Provider {
	t.Helper()
	p, err := NewProvider(Config{BaseURL: url, Lookup: lookup, Logger: logger.NewNop()})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func sample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProvider_Transcribe(t *testing.T) {
	var gotAuth, gotPath, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth, gotPath = r.Header.Get("Authorization"), r.URL.Path
		if _, fh, err := r.FormFile("file"); err == nil {
			gotFile = fh.Filename
		}
		_, _ = w.Write([]byte(successPayload))
	}))
	defer srv.Close()

	res, err := newProvider(t, srv.URL, credentialed()).Transcribe(context.Background(), sample(t), transcription.Options{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotAuth != "Bearer cf-token" {
		t.Errorf("unexpected auth %q", gotAuth)
	}
	if gotPath != "/client/v4/accounts/acc-123/ai/run/@cf/openai/whisper" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotFile != "clip.wav" {
		t.Errorf("unexpected file part %q", gotFile)
	}
	if res.Text != "hello world test" || res.WordCount != 3 || len(res.Segments) != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Language != "en" || res.Confidence == nil || *res.Confidence != 0.91 {
		t.Errorf("expected transcription_info to be mapped, got %+v", res)
	}
	if res.Duration != 1.3 || res.Segments[2].ID != 2 {
		t.Errorf("unexpected timing %+v", res.Segments)
	}
}

func TestProvider_RequiresBothCredentials(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{"no token", map[string]string{AccountEnv: "acc"}},
		{"no account", map[string]string{TokenEnv: "tok"}},
		{"blank account", map[string]string{TokenEnv: "tok", AccountEnv: "  "}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := newProvider(t, "http://unused", env(tc.values))
			if p.Initialize() {
				t.Error("expected unavailable")
			}
			_, err := p.Transcribe(context.Background(), sample(t), transcription.Options{})
			if !errors.HasCode(err, errors.ErrCodeConfiguration) {
				t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
			}
		})
	}
}

func TestProvider_EnvelopeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"errors":[{"code":5006,"message":"Invalid audio"},{"code":1,"message":"retry later"}],"result":null}`))
	}))
	defer srv.Close()

	_, err := newProvider(t, srv.URL, credentialed()).Transcribe(context.Background(), sample(t), transcription.Options{})
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeRemoteRequest {
		t.Fatalf("expected REMOTE_REQUEST, got %v", err)
	}
	if appErr.Message != "Invalid audio; retry later" {
		t.Errorf("expected joined messages, got %q", appErr.Message)
	}
}

func TestProvider_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		code   errors.ErrorCode
	}{
		{http.StatusForbidden, errors.ErrCodeUnauthorized},
		{http.StatusTooManyRequests, errors.ErrCodeRateLimited},
		{http.StatusBadRequest, errors.ErrCodeRemoteRequest},
		{http.StatusInternalServerError, errors.ErrCodeTransport},
	}
	for _, tc := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"success":false,"errors":[{"code":10000,"message":"Authentication error"}]}`))
		}))
		_, err := newProvider(t, srv.URL, credentialed()).Transcribe(context.Background(), sample(t), transcription.Options{})
		srv.Close()
		if !errors.HasCode(err, tc.code) {
			t.Errorf("status %d: expected %s, got %v", tc.status, tc.code, err)
		}
	}
}

func TestProvider_FormatResponse_Idempotent(t *testing.T) {
	p := newProvider(t, "", credentialed())
	a, err := p.FormatResponse([]byte(successPayload), 12)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.FormatResponse([]byte(successPayload), 12)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("expected identical results")
	}
	if _, err := p.FormatResponse([]byte(`{"success":true,"result":"nope"}`), 0); !errors.HasCode(err, errors.ErrCodeRemoteRequest) {
		t.Errorf("expected REMOTE_REQUEST for malformed result, got %v", err)
	}
}

func TestProvider_TextFallsBackToWords(t *testing.T) {
	p := newProvider(t, "", credentialed())
	res, err := p.FormatResponse([]byte(`{"success":true,"result":{"text":" ","words":[{"word":"only","start":0,"end":0.5}]}}`), 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "only" || res.Language != "" || res.Confidence != nil {
		t.Errorf("unexpected result %+v", res)
	}
}
