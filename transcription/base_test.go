package transcription

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/sttkit/errors"
	"github.com/kbukum/sttkit/httpclient"
	"github.com/kbukum/sttkit/logger"
)

const threeWords = `{"text":"hello world test","words":[` +
	`{"start":0,"end":0.4,"text":"hello"},` +
	`{"start":0.4,"end":0.9,"text":"world"},` +
	`{"start":0.9,"end":1.3,"text":"test"}]}`

// testAdapter uploads to /upload and reads a generic words payload.
type testAdapter struct {
	name string
}

func (a testAdapter) BuildRequest(file AudioFile, opts Options, creds Credentials) (httpclient.Request, error) {
	body := &httpclient.MultipartBody{}
	body.AddField("language", opts.Language)
	body.Files = append(body.Files, httpclient.FileFromPath("file", file.Path, file.Name, ContentType(file.Format)))
	return httpclient.Request{
		Method: http.MethodPost,
		Path:   "/upload",
		Body:   body,
		Auth:   httpclient.BearerAuth(creds.Get("api_key")),
	}, nil
}

func (a testAdapter) MapStatus(status int, body []byte) *errors.AppError {
	return MapStatus(status, DetailMessage(body, "error.message"))
}

func (a testAdapter) FormatResponse(raw []byte, processingTimeMs int64) (*Result, error) {
	var resp struct {
		Text  string `json:"text"`
		Words []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Text  string  `json:"text"`
		} `json:"words"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.RemoteRequest("malformed response").WithCause(err)
	}
	segments := make([]Segment, 0, len(resp.Words))
	for _, w := range resp.Words {
		segments = append(segments, Segment{Start: w.Start, End: w.End, Text: w.Text})
	}
	return Finalize(&Result{
		Text:             resp.Text,
		Segments:         segments,
		ProcessingTimeMs: processingTimeMs,
		Provider:         a.name,
		Raw:              RawCopy(raw),
	}), nil
}

type fakeVendor struct {
	srv   *httptest.Server
	calls atomic.Int32
}

func newFakeVendor(t *testing.T, handler http.HandlerFunc) *fakeVendor {
	t.Helper()
	v := &fakeVendor{}
	v.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(v.srv.Close)
	return v
}

func staticCreds(values map[string]string) CredentialSource {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func newTestBase(t *testing.T, baseURL string, mutate ...func(*BaseConfig)) (*Base, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := BaseConfig{
		Name:  "fake",
		Model: "m1",
		Capabilities: Capabilities{
			MaxFileSizeBytes: 1024,
			SupportedFormats: []string{"mp3", "wav"},
		},
		PricePerMinute: 0.01,
		Credentials:    []CredentialSpec{{Key: "api_key", Env: "FAKE_API_KEY"}},
		Lookup:         staticCreds(map[string]string{"FAKE_API_KEY": "secret"}),
		BaseURL:        baseURL,
		Logger:         logger.New(&logger.Config{Level: "debug", Format: "json", Writer: &buf}, "test"),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	b, err := NewBase(cfg, testAdapter{name: cfg.Name})
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}
	return b, &buf
}

func writeAudio(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x1}, size), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("invalid log line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestBase_Transcribe_Success(t *testing.T) {
	vendor := newFakeVendor(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer credential, got %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("language") != "en" {
			t.Errorf("expected language field, got %q", r.FormValue("language"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
		} else {
			defer f.Close()
			if hdr.Filename != "clip.mp3" || hdr.Size != 100 {
				t.Errorf("unexpected file part %s (%d bytes)", hdr.Filename, hdr.Size)
			}
		}
		_, _ = w.Write([]byte(threeWords))
	})
	b, buf := newTestBase(t, vendor.srv.URL)

	res, err := b.Transcribe(context.Background(), writeAudio(t, "clip.mp3", 100), Options{Language: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.WordCount != 3 || res.Duration != 1.3 || len(res.Segments) != 3 {
		t.Errorf("unexpected result %+v", res)
	}
	for i, seg := range res.Segments {
		if seg.ID != i {
			t.Errorf("segment %d has id %d", i, seg.ID)
		}
	}
	if res.Provider != "fake" {
		t.Errorf("expected provider fake, got %s", res.Provider)
	}
	if string(res.Raw) != threeWords {
		t.Error("raw payload must be preserved verbatim")
	}

	lines := logLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("expected start and completion log events, got %d", len(lines))
	}
	if lines[0]["message"] != "transcription started" || lines[1]["message"] != "transcription completed" {
		t.Errorf("unexpected log messages %v / %v", lines[0]["message"], lines[1]["message"])
	}
	for _, key := range []string{logger.FieldFileSize, logger.FieldElapsed, logger.FieldAudioSeconds, logger.FieldHTTPStatus} {
		if _, ok := lines[1][key]; !ok {
			t.Errorf("completion log is missing %s", key)
		}
	}
}

func TestBase_ValidationOrder_NoNetwork(t *testing.T) {
	vendor := newFakeVendor(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(threeWords))
	})

	tests := []struct {
		name   string
		mutate func(*BaseConfig)
		path   func(t *testing.T) string
		opts   Options
		code   errors.ErrorCode
	}{
		{
			name:   "missing credential wins over missing file",
			mutate: func(c *BaseConfig) { c.Lookup = staticCreds(nil) },
			path:   func(t *testing.T) string { return "/does/not/exist.xyz" },
			code:   errors.ErrCodeConfiguration,
		},
		{
			name: "missing file wins over bad format",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "gone.xyz") },
			code: errors.ErrCodeNotFound,
		},
		{
			name: "directory is not a file",
			path: func(t *testing.T) string { return t.TempDir() },
			code: errors.ErrCodeNotFound,
		},
		{
			name: "bad format wins over size",
			path: func(t *testing.T) string { return writeAudio(t, "big.xyz", 4096) },
			code: errors.ErrCodeUnsupportedFormat,
		},
		{
			name: "no extension",
			path: func(t *testing.T) string { return writeAudio(t, "noext", 10) },
			code: errors.ErrCodeUnsupportedFormat,
		},
		{
			name: "oversized",
			path: func(t *testing.T) string { return writeAudio(t, "big.wav", 1025) },
			code: errors.ErrCodeFileTooLarge,
		},
		{
			name: "unsupported language",
			mutate: func(c *BaseConfig) {
				c.Capabilities.SupportedLanguages = []string{"en"}
			},
			path: func(t *testing.T) string { return writeAudio(t, "a.wav", 10) },
			opts: Options{Language: "de"},
			code: errors.ErrCodeInvalidInput,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mutate := func(*BaseConfig) {}
			if tc.mutate != nil {
				mutate = tc.mutate
			}
			b, _ := newTestBase(t, vendor.srv.URL, mutate)
			_, err := b.Transcribe(context.Background(), tc.path(t), tc.opts)
			if !errors.HasCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			appErr, _ := errors.AsAppError(err)
			if _, ok := appErr.Details[logger.FieldElapsed]; !ok {
				t.Error("expected elapsed_ms in error details")
			}
		})
	}
	if n := vendor.calls.Load(); n != 0 {
		t.Errorf("locally rejected inputs must not reach the network, got %d calls", n)
	}
}

func TestBase_ExactLimitIsAccepted(t *testing.T) {
	vendor := newFakeVendor(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(threeWords))
	})
	b, _ := newTestBase(t, vendor.srv.URL)
	if _, err := b.Transcribe(context.Background(), writeAudio(t, "edge.WAV", 1024), Options{}); err != nil {
		t.Fatalf("a file at the limit with an upper-case extension should pass: %v", err)
	}
}

func TestBase_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		body   string
		code   errors.ErrorCode
		msg    string
	}{
		{http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, errors.ErrCodeUnauthorized, "bad key"},
		{http.StatusForbidden, ``, errors.ErrCodeUnauthorized, ""},
		{http.StatusRequestEntityTooLarge, ``, errors.ErrCodePayloadTooLarge, ""},
		{http.StatusTooManyRequests, ``, errors.ErrCodeRateLimited, ""},
		{http.StatusBadRequest, `{"error":{"message":"unsupported model"}}`, errors.ErrCodeRemoteRequest, "unsupported model"},
		{http.StatusUnprocessableEntity, `plain detail`, errors.ErrCodeRemoteRequest, "plain detail"},
		{http.StatusInternalServerError, ``, errors.ErrCodeTransport, ""},
		{http.StatusBadGateway, ``, errors.ErrCodeTransport, ""},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			vendor := newFakeVendor(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			b, buf := newTestBase(t, vendor.srv.URL)
			_, err := b.Transcribe(context.Background(), writeAudio(t, "a.mp3", 10), Options{})
			if !errors.HasCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			appErr, _ := errors.AsAppError(err)
			if tc.msg != "" && appErr.Message != tc.msg {
				t.Errorf("expected vendor detail %q, got %q", tc.msg, appErr.Message)
			}
			if appErr.Details["http_status"] != tc.status {
				t.Errorf("expected http_status detail %d, got %v", tc.status, appErr.Details["http_status"])
			}
			lines := logLines(t, buf)
			last := lines[len(lines)-1]
			if last["message"] != "transcription failed" || last[logger.FieldErrorCode] != string(tc.code) {
				t.Errorf("unexpected failure log %v", last)
			}
			if int(last[logger.FieldHTTPStatus].(float64)) != tc.status {
				t.Errorf("failure log should carry http status, got %v", last[logger.FieldHTTPStatus])
			}
		})
	}
}

func TestBase_TransportFailures(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		vendor := newFakeVendor(t, func(http.ResponseWriter, *http.Request) {})
		url := vendor.srv.URL
		vendor.srv.Close()
		b, _ := newTestBase(t, url)
		_, err := b.Transcribe(context.Background(), writeAudio(t, "a.mp3", 10), Options{})
		if !errors.HasCode(err, errors.ErrCodeTransport) {
			t.Fatalf("expected TRANSPORT, got %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		vendor := newFakeVendor(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		defer close(release)
		b, _ := newTestBase(t, vendor.srv.URL, func(c *BaseConfig) { c.Timeout = 50 * time.Millisecond })
		_, err := b.Transcribe(context.Background(), writeAudio(t, "a.mp3", 10), Options{})
		if !errors.HasCode(err, errors.ErrCodeTransport) {
			t.Fatalf("expected TRANSPORT on timeout, got %v", err)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		vendor := newFakeVendor(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		})
		b, _ := newTestBase(t, vendor.srv.URL)
		_, err := b.Transcribe(context.Background(), writeAudio(t, "a.mp3", 10), Options{})
		if !errors.HasCode(err, errors.ErrCodeRemoteRequest) {
			t.Fatalf("expected REMOTE_REQUEST, got %v", err)
		}
		if !strings.Contains(err.Error(), "malformed response") {
			t.Errorf("unexpected message %v", err)
		}
	})
}

func TestBase_FormatResponseIsIdempotent(t *testing.T) {
	a := testAdapter{name: "fake"}
	first, err := a.FormatResponse([]byte(threeWords), 42)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.FormatResponse([]byte(threeWords), 42)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("FormatResponse is not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestBase_Initialize(t *testing.T) {
	env := map[string]string{}
	b, _ := newTestBase(t, "http://unused", func(c *BaseConfig) { c.Lookup = staticCreds(env) })

	if b.Initialize() {
		t.Fatal("expected false without a credential")
	}
	if b.IsAvailable(context.Background()) {
		t.Fatal("IsAvailable follows Initialize")
	}

	env["FAKE_API_KEY"] = "k1"
	if !b.Initialize() || !b.Initialize() {
		t.Fatal("expected repeated Initialize to succeed")
	}
	if got := b.creds.cached().Get("api_key"); got != "k1" {
		t.Errorf("expected cached k1, got %q", got)
	}

	env["FAKE_API_KEY"] = "k2"
	b.Initialize()
	if got := b.creds.cached().Get("api_key"); got != "k2" {
		t.Errorf("expected refreshed k2, got %q", got)
	}

	delete(env, "FAKE_API_KEY")
	if b.Initialize() {
		t.Fatal("expected false after the credential vanished")
	}
	if b.creds.cached() != nil {
		t.Error("expected cache to be cleared")
	}
}

func TestBase_LogsLostCredentialsOnce(t *testing.T) {
	env := map[string]string{"FAKE_API_KEY": "k1"}
	b, buf := newTestBase(t, "http://unused", func(c *BaseConfig) { c.Lookup = staticCreds(env) })

	if !b.Initialize() {
		t.Fatal("expected the credential to resolve")
	}
	if strings.Contains(buf.String(), "no longer set") {
		t.Fatal("nothing should be logged while the credential is present")
	}

	delete(env, "FAKE_API_KEY")
	_, _ = b.Transcribe(context.Background(), writeAudio(t, "a.mp3", 10), Options{})
	b.Initialize()
	if got := strings.Count(buf.String(), "provider credentials are no longer set"); got != 1 {
		t.Errorf("expected the loss to be logged once, got %d", got)
	}
}

func TestBase_InjectedCredentialWins(t *testing.T) {
	b, _ := newTestBase(t, "http://unused", func(c *BaseConfig) {
		c.Credentials = []CredentialSpec{
			{Key: "api_key", Env: "FAKE_API_KEY", Value: "injected"},
			{Key: "token", Env: "FAKE_TOKEN", Optional: true},
		}
	})
	creds, ok := b.Credentials()
	if !ok || creds.Get("api_key") != "injected" {
		t.Errorf("expected injected credential, got %v", creds)
	}
	if _, present := creds["token"]; present {
		t.Error("absent optional credential should not be set")
	}
}

func TestBase_CapabilitiesAreCopies(t *testing.T) {
	b, _ := newTestBase(t, "http://unused")
	caps := b.Capabilities()
	if caps.Name != "fake" {
		t.Errorf("expected name fake, got %s", caps.Name)
	}
	caps.SupportedFormats[0] = "mutated"
	if b.Capabilities().SupportedFormats[0] != "mp3" {
		t.Error("Capabilities must return copies")
	}
}

func TestBase_EstimateCost(t *testing.T) {
	b, _ := newTestBase(t, "http://unused")
	cost, err := b.EstimateCost(writeAudio(t, "a.wav", 960_000))
	if err != nil || cost <= 0 {
		t.Errorf("expected positive cost, got %v, %v", cost, err)
	}
	if _, err := b.EstimateCost("/missing.wav"); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestNewBase_Validation(t *testing.T) {
	if _, err := NewBase(BaseConfig{}, testAdapter{}); err == nil {
		t.Error("expected error without a name")
	}
	if _, err := NewBase(BaseConfig{Name: "x"}, nil); err == nil {
		t.Error("expected error without an adapter")
	}
}
