package transcription

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kbukum/sttkit/errors"
	"github.com/kbukum/sttkit/httpclient"
	"github.com/kbukum/sttkit/logger"
)

// DefaultTimeout bounds a single transcription call.
const DefaultTimeout = 10 * time.Minute

// AudioFile is a validated input file.
type AudioFile struct {
	Path string
	// Name is the base name sent to the vendor.
	Name string
	// Format is the lowercase extension without the dot.
	Format string
	Size   int64
}

// Adapter supplies the vendor-specific parts of a call to Base.
type Adapter interface {
	// BuildRequest returns the upload request for a validated file.
	BuildRequest(file AudioFile, opts Options, creds Credentials) (httpclient.Request, error)
	// MapStatus classifies a non-2xx response.
	MapStatus(status int, body []byte) *errors.AppError
	// FormatResponse maps the raw vendor payload to a Result.
	FormatResponse(raw []byte, processingTimeMs int64) (*Result, error)
}

// BaseConfig configures the shared provider machinery.
type BaseConfig struct {
	Name           string
	Model          string
	Capabilities   Capabilities
	PricePerMinute float64
	// Timeout bounds each Transcribe call. Defaults to DefaultTimeout.
	Timeout     time.Duration
	Credentials []CredentialSpec
	// Lookup resolves credentials without an injected value. Defaults to EnvCredentials.
	Lookup  CredentialSource
	BaseURL string
	// Transport overrides the HTTP transport (tests use httptest servers).
	Transport http.RoundTripper
	Logger    *logger.Logger
}

// Base implements the validation pipeline, timing, logging and HTTP round
// trip shared by every vendor. Variants embed it and provide an Adapter.
type Base struct {
	name    string
	model   string
	caps    Capabilities
	price   float64
	timeout time.Duration
	creds   *credentialCache
	client  *httpclient.Client
	adapter Adapter
	log     *logger.Logger
}

// NewBase creates the shared machinery for a provider variant.
func NewBase(cfg BaseConfig, adapter Adapter) (*Base, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("transcription: provider name is required")
	}
	if adapter == nil {
		return nil, fmt.Errorf("transcription: %s: adapter is required", cfg.Name)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client, err := httpclient.New(httpclient.Config{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription: %s: %w", cfg.Name, err)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get("transcription." + cfg.Name)
	}
	caps := cfg.Capabilities.Clone()
	caps.Name = cfg.Name
	return &Base{
		name:    cfg.Name,
		model:   cfg.Model,
		caps:    caps,
		price:   cfg.PricePerMinute,
		timeout: cfg.Timeout,
		creds:   newCredentialCache(cfg.Credentials, cfg.Lookup),
		client:  client,
		adapter: adapter,
		log:     log,
	}, nil
}

// Name returns the provider name.
func (b *Base) Name() string { return b.name }

// Model returns the configured vendor model.
func (b *Base) Model() string { return b.model }

// Initialize resolves credentials and reports whether they are present.
func (b *Base) Initialize() bool {
	_, ok := b.Credentials()
	return ok
}

// Credentials resolves the current credentials. Losing a credential that
// resolved on an earlier call is logged once.
func (b *Base) Credentials() (Credentials, bool) {
	had := b.creds.cached() != nil
	creds, ok := b.creds.resolve()
	if had && !ok {
		b.log.Warn("provider credentials are no longer set", logger.Fields(logger.FieldProvider, b.name))
	}
	return creds, ok
}

// IsAvailable reports whether the provider has its credentials.
func (b *Base) IsAvailable(context.Context) bool { return b.Initialize() }

// Capabilities returns a copy of the static limits.
func (b *Base) Capabilities() Capabilities { return b.caps.Clone() }

// EstimateCost returns the advisory cost of transcribing audioPath.
func (b *Base) EstimateCost(audioPath string) (float64, error) {
	return EstimateCost(audioPath, b.price)
}

// Transcribe validates the input in order (credentials, existence, format,
// size, language), then uploads the file and formats the vendor response.
// Every failure is returned as an *errors.AppError.
func (b *Base) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	start := time.Now()
	log := b.log.WithContext(ctx)
	fields := logger.Fields(
		logger.FieldProvider, b.name,
		logger.FieldModel, b.model,
		logger.FieldFile, filepath.Base(audioPath),
		logger.FieldLanguage, opts.Language,
	)

	creds, ok := b.Credentials()
	if !ok {
		return nil, b.fail(log, fields, start, errors.Configuration(b.name, "credentials are not set"))
	}
	file, appErr := b.checkFile(audioPath, opts)
	if appErr != nil {
		return nil, b.fail(log, fields, start, appErr)
	}
	fields[logger.FieldFileSize] = file.Size

	log.Info("transcription started", fields)

	req, err := b.adapter.BuildRequest(file, opts, creds)
	if err != nil {
		return nil, b.fail(log, fields, start, Classify(err))
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	resp, err := b.client.Do(callCtx, req)
	elapsed := time.Since(start)
	if resp != nil {
		fields[logger.FieldHTTPStatus] = resp.StatusCode
	}
	if err != nil {
		return nil, b.fail(log, fields, start, classifyHTTPError(err, b.adapter.MapStatus))
	}

	result, err := b.adapter.FormatResponse(resp.Body, elapsed.Milliseconds())
	if err != nil {
		return nil, b.fail(log, fields, start, Classify(err))
	}
	if result.Provider != b.name {
		return nil, b.fail(log, fields, start,
			errors.Internal(fmt.Errorf("result provider %q does not match %q", result.Provider, b.name)))
	}

	fields[logger.FieldAudioSeconds] = result.Duration
	fields[logger.FieldLanguage] = result.Language
	if result.Confidence != nil {
		fields[logger.FieldConfidence] = *result.Confidence
	}
	fields["word_count"] = result.WordCount
	fields[logger.FieldElapsed] = time.Since(start).Milliseconds()
	log.Info("transcription completed", fields)
	return result, nil
}

func (b *Base) checkFile(audioPath string, opts Options) (AudioFile, *errors.AppError) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return AudioFile{}, errors.NotFound("audio file", audioPath).WithCause(err)
	}
	if info.IsDir() {
		return AudioFile{}, errors.NotFound("audio file", audioPath)
	}

	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(audioPath), "."))
	if !b.caps.SupportsFormat(format) {
		return AudioFile{}, errors.UnsupportedFormat(format, b.caps.SupportedFormats)
	}
	if b.caps.MaxFileSizeBytes > 0 && info.Size() > b.caps.MaxFileSizeBytes {
		return AudioFile{}, errors.FileTooLarge(info.Size(), b.caps.MaxFileSizeBytes)
	}
	if !b.caps.SupportsLanguage(opts.Language) {
		return AudioFile{}, errors.InvalidInput("language",
			fmt.Sprintf("language %q is not supported by %s", opts.Language, b.name))
	}
	return AudioFile{
		Path:   audioPath,
		Name:   filepath.Base(audioPath),
		Format: format,
		Size:   info.Size(),
	}, nil
}

func (b *Base) fail(log *logger.Logger, fields map[string]interface{}, start time.Time, appErr *errors.AppError) error {
	elapsed := time.Since(start).Milliseconds()
	appErr = appErr.WithDetail("provider", b.name).WithDetail(logger.FieldElapsed, elapsed)
	fields[logger.FieldElapsed] = elapsed
	fields[logger.FieldErrorCode] = string(appErr.Code)
	fields[logger.FieldError] = appErr.Message
	if errors.IsLocalCode(appErr.Code) {
		log.Warn("transcription rejected", fields)
	} else {
		log.Error("transcription failed", fields)
	}
	return appErr
}

// ContentType returns the MIME type for an audio format.
func ContentType(format string) string {
	switch format {
	case "mp3", "mpga", "mpeg":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "m4a", "mp4":
		return "audio/mp4"
	case "ogg", "oga", "opus":
		return "audio/ogg"
	case "webm":
		return "audio/webm"
	case "flac":
		return "audio/flac"
	case "aac":
		return "audio/aac"
	default:
		return "application/octet-stream"
	}
}
