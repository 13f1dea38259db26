// Package whisper implements transcription.Provider for a self-hosted
// faster-whisper HTTP sidecar.
package whisper

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/sttkit/errors"
	"github.com/kbukum/sttkit/httpclient"
	"github.com/kbukum/sttkit/logger"
	"github.com/kbukum/sttkit/provider"
	"github.com/kbukum/sttkit/transcription"
)

const (
	// ProviderName is the registered name for the Whisper provider.
	ProviderName = "whisper"
	// URLEnv holds the sidecar base URL. The URL doubles as the credential:
	// without it the provider is unavailable.
	URLEnv = "WHISPER_URL"
	// TokenEnv optionally holds a bearer token for the sidecar.
	TokenEnv = "WHISPER_API_TOKEN"

	defaultWhisperModel = "base"
	healthTimeout       = 5 * time.Second
	maxFileSize         = 500 << 20
)

var supportedFormats = []string{"aac", "flac", "m4a", "mp3", "mp4", "ogg", "opus", "wav", "webm"}

// Config holds configuration for the Whisper transcription provider.
type Config struct {
	URL         string        `yaml:"url" mapstructure:"url"`
	Token       string        `yaml:"token" mapstructure:"token"`
	Model       string        `yaml:"model" mapstructure:"model"`
	Language    string        `yaml:"language" mapstructure:"language"`
	Device      string        `yaml:"device" mapstructure:"device"`
	ComputeType string        `yaml:"compute_type" mapstructure:"compute_type"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MaxFileSizeBytes overrides the upload limit. Defaults to 500 MiB.
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes" mapstructure:"max_file_size_bytes"`

	Lookup    transcription.CredentialSource `yaml:"-" mapstructure:"-"`
	Transport http.RoundTripper              `yaml:"-" mapstructure:"-"`
	Logger    *logger.Logger                 `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = defaultWhisperModel
	}
	if c.Timeout <= 0 {
		c.Timeout = transcription.DefaultTimeout
	}
	if c.MaxFileSizeBytes <= 0 {
		c.MaxFileSizeBytes = maxFileSize
	}
}

// Provider implements transcription.Provider using a faster-whisper HTTP sidecar.
type Provider struct {
	*transcription.Base
	cfg    Config
	health *httpclient.Client
}

// NewProvider creates a new Whisper transcription provider.
func NewProvider(cfg Config) (*Provider, error) {
	cfg.ApplyDefaults()
	health, err := httpclient.New(httpclient.Config{Timeout: healthTimeout, Transport: cfg.Transport})
	if err != nil {
		return nil, err
	}
	p := &Provider{cfg: cfg, health: health}
	base, err := transcription.NewBase(transcription.BaseConfig{
		Name:  ProviderName,
		Model: cfg.Model,
		Capabilities: transcription.Capabilities{
			MaxFileSizeBytes: cfg.MaxFileSizeBytes,
			SupportedFormats: supportedFormats,
		},
		Timeout: cfg.Timeout,
		Credentials: []transcription.CredentialSpec{
			{Key: "url", Env: URLEnv, Value: cfg.URL},
			{Key: "token", Env: TokenEnv, Value: cfg.Token, Optional: true},
		},
		Lookup:    cfg.Lookup,
		Transport: cfg.Transport,
		Logger:    cfg.Logger,
	}, p)
	if err != nil {
		return nil, err
	}
	p.Base = base
	return p, nil
}

// Health probes the sidecar's /health endpoint.
func (p *Provider) Health(ctx context.Context) provider.HealthStatus {
	creds, ok := p.Credentials()
	if !ok {
		return provider.HealthStatus{Status: provider.StatusUnavailable, Message: "not configured"}
	}
	resp, err := p.health.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   endpoint(creds.Get("url"), "/health"),
		Auth:   httpclient.BearerAuth(creds.Get("token")),
	})
	if err != nil {
		return provider.HealthStatus{Status: provider.StatusDegraded, Message: err.Error()}
	}
	return provider.HealthStatus{
		Status:  provider.StatusHealthy,
		Details: map[string]any{"http_status": resp.StatusCode},
	}
}

// BuildRequest builds the multipart upload for the sidecar's /transcribe.
func (p *Provider) BuildRequest(file transcription.AudioFile, opts transcription.Options, creds transcription.Credentials) (httpclient.Request, error) {
	lang := p.cfg.Language
	if opts.Language != "" {
		lang = opts.Language
	}

	body := &httpclient.MultipartBody{}
	body.AddField("model", p.cfg.Model)
	if lang != "" {
		body.AddField("language", lang)
	}
	if p.cfg.Device != "" {
		body.AddField("device", p.cfg.Device)
	}
	if p.cfg.ComputeType != "" {
		body.AddField("compute_type", p.cfg.ComputeType)
	}
	body.AddField("diarize", strconv.FormatBool(opts.Diarize)).
		AddField("word_timestamps", strconv.FormatBool(opts.WantTimestamps()))
	body.Files = append(body.Files,
		httpclient.FileFromPath("audio", file.Path, file.Name, transcription.ContentType(file.Format)))

	return httpclient.Request{
		Method: http.MethodPost,
		Path:   endpoint(creds.Get("url"), "/transcribe"),
		Body:   body,
		Auth:   httpclient.BearerAuth(creds.Get("token")),
	}, nil
}

// MapStatus classifies an error response from the sidecar.
func (p *Provider) MapStatus(status int, body []byte) *errors.AppError {
	return transcription.MapStatus(status, transcription.DetailMessage(body, "detail", "error", "message"))
}

func endpoint(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

// --- internal Whisper API response types ---

type whisperResponse struct {
	Text                string           `json:"text"`
	Segments            []whisperSegment `json:"segments"`
	Language            string           `json:"language"`
	LanguageProbability *float64         `json:"language_probability"`
}

type whisperSegment struct {
	Text       string   `json:"text"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Confidence *float64 `json:"confidence"`
	AvgLogprob *float64 `json:"avg_logprob"`
	Speaker    string   `json:"speaker"`
}

// FormatResponse maps the sidecar response. A segment's confidence is taken
// as reported, or derived from avg_logprob.
func (p *Provider) FormatResponse(raw []byte, processingTimeMs int64) (*transcription.Result, error) {
	var resp whisperResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.RemoteRequest("malformed response").WithCause(err)
	}

	segments := make([]transcription.Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		s := transcription.Segment{
			Start:   seg.Start,
			End:     seg.End,
			Text:    strings.TrimSpace(seg.Text),
			Speaker: seg.Speaker,
		}
		switch {
		case seg.Confidence != nil:
			s.Confidence = seg.Confidence
		case seg.AvgLogprob != nil:
			s.Confidence = transcription.ConfidenceFromLogProb(*seg.AvgLogprob)
		}
		segments = append(segments, s)
	}

	text := resp.Text
	if strings.TrimSpace(text) == "" {
		text = transcription.JoinText(segments)
	}
	confidence := transcription.MeanConfidence(segments)
	if confidence == nil && resp.LanguageProbability != nil {
		confidence = transcription.ClampConfidence(*resp.LanguageProbability)
	}
	return transcription.Finalize(&transcription.Result{
		Text:             text,
		Language:         transcription.NormalizeLanguage(resp.Language),
		Segments:         segments,
		Confidence:       confidence,
		ProcessingTimeMs: processingTimeMs,
		Provider:         ProviderName,
		Model:            p.cfg.Model,
		Raw:              transcription.RawCopy(raw),
	}), nil
}

var (
	_ transcription.Provider = (*Provider)(nil)
	_ provider.HealthChecker = (*Provider)(nil)
)
