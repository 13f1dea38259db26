// Package elevenlabs implements transcription.Provider for the ElevenLabs
// Scribe speech-to-text API.
package elevenlabs

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/sttkit/errors"
	"github.com/kbukum/sttkit/httpclient"
	"github.com/kbukum/sttkit/logger"
	"github.com/kbukum/sttkit/transcription"
)

const (
	// ProviderName is the registered name for the ElevenLabs provider.
	ProviderName = "elevenlabs"
	// CredentialEnv holds the API key when none is configured.
	CredentialEnv = "ELEVENLABS_API_KEY"
	// PricePerMinute is the list price in USD.
	PricePerMinute = 0.0067

	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModel   = "scribe_v1"
	maxFileSize    = 1 << 30
	apiKeyHeader   = "xi-api-key"
)

var supportedFormats = []string{"aac", "flac", "m4a", "mp3", "mp4", "mpeg", "ogg", "opus", "wav", "webm"}

// Config holds configuration for the ElevenLabs transcription provider.
type Config struct {
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// TagAudioEvents asks Scribe to mark non-speech events such as laughter.
	TagAudioEvents bool `yaml:"tag_audio_events" mapstructure:"tag_audio_events"`

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

// Provider implements transcription.Provider for ElevenLabs.
type Provider struct {
	*transcription.Base
	cfg Config
}

// NewProvider creates a new ElevenLabs transcription provider.
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
	granularity := "word"
	if !opts.WantTimestamps() {
		granularity = "none"
	}
	body := &httpclient.MultipartBody{}
	body.AddField("model_id", p.cfg.Model).
		AddField("diarize", strconv.FormatBool(opts.Diarize)).
		AddField("tag_audio_events", strconv.FormatBool(p.cfg.TagAudioEvents)).
		AddField("timestamps_granularity", granularity)
	if opts.Language != "" {
		body.AddField("language_code", opts.Language)
	}
	body.Files = append(body.Files,
		httpclient.FileFromPath("file", file.Path, file.Name, transcription.ContentType(file.Format)))

	return httpclient.Request{
		Method: http.MethodPost,
		Path:   "/v1/speech-to-text",
		Body:   body,
		Auth:   httpclient.HeaderAuth(apiKeyHeader, creds.Get("api_key")),
	}, nil
}

// MapStatus classifies an error response. Validation failures (422) carry
// detail.message, or a list of details.
func (p *Provider) MapStatus(status int, body []byte) *errors.AppError {
	detail := transcription.DetailMessage(body, "detail.message", "detail.msg", "detail")
	return transcription.MapStatus(status, detail)
}

type response struct {
	LanguageCode        string   `json:"language_code"`
	LanguageProbability *float64 `json:"language_probability"`
	Text                string   `json:"text"`
	Words               []word   `json:"words"`
}

type word struct {
	Text      string   `json:"text"`
	Start     float64  `json:"start"`
	End       float64  `json:"end"`
	Type      string   `json:"type"` // "word", "spacing", "audio_event"
	SpeakerID string   `json:"speaker_id"`
	Logprob   *float64 `json:"logprob"`
}

// FormatResponse maps a Scribe transcript. Each word or audio event becomes
// a segment; spacing tokens are dropped.
func (p *Provider) FormatResponse(raw []byte, processingTimeMs int64) (*transcription.Result, error) {
	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.RemoteRequest("malformed response").WithCause(err)
	}

	segments := make([]transcription.Segment, 0, len(resp.Words))
	for _, w := range resp.Words {
		if w.Type == "spacing" {
			continue
		}
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		seg := transcription.Segment{Start: w.Start, End: w.End, Text: text, Speaker: w.SpeakerID}
		if w.Logprob != nil {
			seg.Confidence = transcription.ConfidenceFromLogProb(*w.Logprob)
		}
		segments = append(segments, seg)
	}

	var confidence *float64
	if resp.LanguageProbability != nil {
		confidence = transcription.ClampConfidence(*resp.LanguageProbability)
	}
	text := resp.Text
	if strings.TrimSpace(text) == "" {
		text = transcription.JoinText(segments)
	}
	return transcription.Finalize(&transcription.Result{
		Text:             text,
		Language:         transcription.NormalizeLanguage(resp.LanguageCode),
		Segments:         segments,
		Confidence:       confidence,
		ProcessingTimeMs: processingTimeMs,
		Provider:         ProviderName,
		Model:            p.cfg.Model,
		Raw:              transcription.RawCopy(raw),
	}), nil
}
