package main

import (
	"fmt"
	"time"

	"github.com/kbukum/sttkit/config"
	"github.com/kbukum/sttkit/notify"
	"github.com/kbukum/sttkit/observability"
	"github.com/kbukum/sttkit/server"
	"github.com/kbukum/sttkit/transcription/cloudflare"
	"github.com/kbukum/sttkit/transcription/elevenlabs"
	"github.com/kbukum/sttkit/transcription/openai"
	"github.com/kbukum/sttkit/transcription/whisper"
	"github.com/kbukum/sttkit/validation"
)

// Config is the sttd process configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server    server.Config        `yaml:"server" mapstructure:"server"`
	Providers ProvidersConfig      `yaml:"providers" mapstructure:"providers"`
	Router    RouterConfig         `yaml:"router" mapstructure:"router"`
	Notify    NotifyConfig         `yaml:"notify" mapstructure:"notify"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// ProvidersConfig holds per-vendor settings. Credentials are usually left
// empty here and read from the environment.
type ProvidersConfig struct {
	OpenAI     openai.Config     `yaml:"openai" mapstructure:"openai"`
	ElevenLabs elevenlabs.Config `yaml:"elevenlabs" mapstructure:"elevenlabs"`
	Cloudflare cloudflare.Config `yaml:"cloudflare" mapstructure:"cloudflare"`
	Whisper    whisper.Config    `yaml:"whisper" mapstructure:"whisper"`
}

// RouterConfig configures provider selection.
type RouterConfig struct {
	// Priority is the auto-mode order. Empty uses the built-in order.
	Priority      []string      `yaml:"priority" mapstructure:"priority" validate:"dive,oneof=openai elevenlabs cloudflare whisper"`
	MaxConcurrent int           `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=1,lte=64"`
	NotifyChannel string        `yaml:"notify_channel" mapstructure:"notify_channel"`
	Breaker       BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// BreakerConfig configures the per-provider circuit breakers.
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxFailures int           `yaml:"max_failures" mapstructure:"max_failures" validate:"gte=1"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

// NotifyConfig configures failure notification channels.
type NotifyConfig struct {
	Console  bool                   `yaml:"console" mapstructure:"console"`
	Webhooks []notify.WebhookConfig `yaml:"webhooks" mapstructure:"webhooks" validate:"dive"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()

	if c.Router.MaxConcurrent == 0 {
		c.Router.MaxConcurrent = 4
	}
	if c.Router.NotifyChannel == "" {
		c.Router.NotifyChannel = notify.AllChannels
	}
	if c.Router.Breaker.MaxFailures == 0 {
		c.Router.Breaker.MaxFailures = 5
	}
	if c.Router.Breaker.Timeout == 0 {
		c.Router.Breaker.Timeout = 30 * time.Second
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.Name
	}
	if c.Telemetry.ServiceVersion == "" {
		c.Telemetry.ServiceVersion = c.Version
	}
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = c.Environment
	}
	c.Telemetry.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
