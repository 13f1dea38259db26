// Package openai implements transcription.Provider for the OpenAI audio
// transcriptions API using the verbose_json response format.
package openai

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/sttkit/errors"
	"github.com/kbukum/sttkit/httpclient"
	"github.com/kbukum/sttkit/logger"
	"github.com/kbukum/sttkit/transcription"
)

const (
	// ProviderName is the registered name for the OpenAI provider.
	ProviderName = "openai"
	// CredentialEnv holds the API key when none is configured.
	CredentialEnv = "OPENAI_API_KEY"

	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "whisper-1"
	// PricePerMinute is the list price in USD.
	PricePerMinute = 0.006
	maxFileSize    = 25 << 20
)

var supportedFormats = []string{"flac", "m4a", "mp3", "mp4", "mpeg", "mpga", "oga", "ogg", "wav", "webm"}

// Config holds configuration for the OpenAI transcription provider.
type Config struct {
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Prompt is optional context passed to the model to guide spelling.
	Prompt string `yaml:"prompt" mapstructure:"prompt"`

	Lookup    transcription.CredentialSource `yaml:"-" mapstructure:"-"`
	Transport http.RoundTripper              `yaml:"-" mapstructure:"-"`
	Logger    *logger.Logger                 `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = transcription.DefaultTimeout
	}
}

// Provider implements transcription.Provider for OpenAI.
type Provider struct {
	*transcription.Base
	cfg Config
}

// NewProvider creates a new OpenAI transcription provider.
func NewProvider(cfg Config) (*Provider, error) {
	cfg.ApplyDefaults()
	p := &Provider{cfg: cfg}
	base, err := transcription.NewBase(transcription.BaseConfig{
		Name:  ProviderName,
		Model: cfg.Model,
		Capabilities: transcription.Capabilities{
			MaxFileSizeBytes: maxFileSize,
			SupportedFormats: supportedFormats,
		},
		PricePerMinute: PricePerMinute,
		Timeout:        cfg.Timeout,
		Credentials:    []transcription.CredentialSpec{{Key: "api_key", Env: CredentialEnv, Value: cfg.APIKey}},
		Lookup:         cfg.Lookup,
		BaseURL:        cfg.BaseURL,
		Transport:      cfg.Transport,
		Logger:         cfg.Logger,
	}, p)
	if err != nil {
		return nil, err
	}
	p.Base = base
	return p, nil
}

// BuildRequest builds the multipart upload.
func (p *Provider) BuildRequest(file transcription.AudioFile, opts transcription.Options, creds transcription.Credentials) (httpclient.Request, error) {
	body := &httpclient.MultipartBody{}
	body.AddField("model", p.cfg.Model).AddField("response_format", "verbose_json")
	if opts.Language != "" {
		body.AddField("language", opts.Language)
	}
	if p.cfg.Prompt != "" {
		body.AddField("prompt", p.cfg.Prompt)
	}
	if opts.WantTimestamps() {
		body.AddField("timestamp_granularities[]", "segment").
			AddField("timestamp_granularities[]", "word")
	}
	body.Files = append(body.Files,
		httpclient.FileFromPath("file", file.Path, file.Name, transcription.ContentType(file.Format)))

	return httpclient.Request{
		Method: http.MethodPost,
		Path:   "/v1/audio/transcriptions",
		Body:   body,
		Auth:   httpclient.BearerAuth(creds.Get("api_key")),
	}, nil
}

// MapStatus classifies an error response, reading error.message.
func (p *Provider) MapStatus(status int, body []byte) *errors.AppError {
	return transcription.MapStatus(status, transcription.DetailMessage(body, "error.message"))
}

type verboseResponse struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []segment `json:"segments"`
	Words    []word    `json:"words"`
}

type segment struct {
	ID         int      `json:"id"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	AvgLogprob *float64 `json:"avg_logprob"`
}

type word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// FormatResponse maps a verbose_json payload. Segments come from
// segments[], or from words[] when only word timing was returned.
func (p *Provider) FormatResponse(raw []byte, processingTimeMs int64) (*transcription.Result, error) {
	var resp verboseResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.RemoteRequest("malformed response").WithCause(err)
	}

	var segments []transcription.Segment
	switch {
	case len(resp.Segments) > 0:
		segments = make([]transcription.Segment, 0, len(resp.Segments))
		for _, s := range resp.Segments {
			seg := transcription.Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)}
			if s.AvgLogprob != nil {
				seg.Confidence = transcription.ConfidenceFromLogProb(*s.AvgLogprob)
			}
			segments = append(segments, seg)
		}
	case len(resp.Words) > 0:
		segments = make([]transcription.Segment, 0, len(resp.Words))
		for _, w := range resp.Words {
			segments = append(segments, transcription.Segment{Start: w.Start, End: w.End, Text: strings.TrimSpace(w.Word)})
		}
	}

	text := resp.Text
	if strings.TrimSpace(text) == "" {
		text = transcription.JoinText(segments)
	}
	return transcription.Finalize(&transcription.Result{
		Text:             text,
		Language:         transcription.NormalizeLanguage(resp.Language),
		Segments:         segments,
		Confidence:       transcription.MeanConfidence(segments),
		ProcessingTimeMs: processingTimeMs,
		Provider:         ProviderName,
		Model:            p.cfg.Model,
		Raw:              transcription.RawCopy(raw),
	}), nil
}
