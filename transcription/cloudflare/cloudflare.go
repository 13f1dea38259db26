// Package cloudflare implements transcription.Provider for the Workers AI
// whisper models.
package cloudflare

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kbukum/sttkit/errors"
	"github.com/kbukum/sttkit/httpclient"
	"github.com/kbukum/sttkit/logger"
	"github.com/kbukum/sttkit/transcription"
)

const (
	// ProviderName is the registered name for the Cloudflare provider.
	ProviderName = "cloudflare"
	// TokenEnv holds the API token when none is configured.
	TokenEnv = "CLOUDFLARE_API_TOKEN"
	// AccountEnv holds the account id when none is configured.
	AccountEnv = "CLOUDFLARE_ACCOUNT_ID"
	// PricePerMinute is the list price in USD.
	PricePerMinute = 0.0005

	defaultBaseURL = "https://api.cloudflare.com"
	defaultModel   = "@cf/openai/whisper"
	maxFileSize    = 25 << 20
)

var supportedFormats = []string{"flac", "m4a", "mp3", "mp4", "ogg", "wav", "webm"}

// Config holds configuration for the Cloudflare transcription provider.
type Config struct {
	APIToken  string        `yaml:"api_token" mapstructure:"api_token"`
	AccountID string        `yaml:"account_id" mapstructure:"account_id"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Model     string        `yaml:"model" mapstructure:"model"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`

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

// Provider implements transcription.Provider for Cloudflare Workers AI.
type Provider struct {
	*transcription.Base
	cfg Config
}

// NewProvider creates a new Cloudflare transcription provider.
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
		Credentials: []transcription.CredentialSpec{
			{Key: "api_token", Env: TokenEnv, Value: cfg.APIToken},
			{Key: "account_id", Env: AccountEnv, Value: cfg.AccountID},
		},
		Lookup:    cfg.Lookup,
		BaseURL:   cfg.BaseURL,
		Transport: cfg.Transport,
		Logger:    cfg.Logger,
	}, p)
	if err != nil {
		return nil, err
	}
	p.Base = base
	return p, nil
}

// BuildRequest builds the multipart upload to the account's model endpoint.
func (p *Provider) BuildRequest(file transcription.AudioFile, opts transcription.Options, creds transcription.Credentials) (httpclient.Request, error) {
	body := &httpclient.MultipartBody{}
	if opts.Language != "" {
		body.AddField("language", opts.Language)
	}
	body.Files = append(body.Files,
		httpclient.FileFromPath("file", file.Path, file.Name, transcription.ContentType(file.Format)))

	return httpclient.Request{
		Method: http.MethodPost,
		Path:   "/client/v4/accounts/" + url.PathEscape(creds.Get("account_id")) + "/ai/run/" + p.cfg.Model,
		Body:   body,
		Auth:   httpclient.BearerAuth(creds.Get("api_token")),
	}, nil
}

// MapStatus classifies an error response, reading errors[].message.
func (p *Provider) MapStatus(status int, body []byte) *errors.AppError {
	return transcription.MapStatus(status, transcription.DetailMessage(body, "errors.message"))
}

type envelope struct {
	Success bool            `json:"success"`
	Errors  []apiMessage    `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type whisperResult struct {
	Text  string `json:"text"`
	Words []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
	TranscriptionInfo *struct {
		Language            string   `json:"language"`
		LanguageProbability *float64 `json:"language_probability"`
	} `json:"transcription_info"`
}

// FormatResponse maps the API envelope. An envelope with success=false is
// a rejected request even when the HTTP status was 200.
func (p *Provider) FormatResponse(raw []byte, processingTimeMs int64) (*transcription.Result, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.RemoteRequest("malformed response").WithCause(err)
	}
	if !env.Success {
		msgs := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			if e.Message != "" {
				msgs = append(msgs, e.Message)
			}
		}
		return nil, errors.RemoteRequest(strings.Join(msgs, "; "))
	}

	var res whisperResult
	if err := json.Unmarshal(env.Result, &res); err != nil {
		return nil, errors.RemoteRequest("malformed response").WithCause(err)
	}

	segments := make([]transcription.Segment, 0, len(res.Words))
	for _, w := range res.Words {
		if text := strings.TrimSpace(w.Word); text != "" {
			segments = append(segments, transcription.Segment{Start: w.Start, End: w.End, Text: text})
		}
	}
	result := &transcription.Result{
		Text:             res.Text,
		Segments:         segments,
		ProcessingTimeMs: processingTimeMs,
		Provider:         ProviderName,
		Model:            p.cfg.Model,
		Raw:              transcription.RawCopy(raw),
	}
	if info := res.TranscriptionInfo; info != nil {
		result.Language = transcription.NormalizeLanguage(info.Language)
		if info.LanguageProbability != nil {
			result.Confidence = transcription.ClampConfidence(*info.LanguageProbability)
		}
	}
	if strings.TrimSpace(result.Text) == "" {
		result.Text = transcription.JoinText(segments)
	}
	return transcription.Finalize(result), nil
}
