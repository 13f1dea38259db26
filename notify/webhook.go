package notify

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/sttkit/httpclient"
)

// WebhookConfig configures a chat incoming-webhook channel.
type WebhookConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	URL      string `yaml:"url" mapstructure:"url" validate:"omitempty,url"`
	Username string `yaml:"username" mapstructure:"username"`
	// Timeout bounds one delivery including retries. Defaults to 10s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Retries re-sends on 429, 5xx and network failures. Defaults to true.
	Retries *bool `yaml:"retries" mapstructure:"retries"`

	Transport http.RoundTripper `yaml:"-" mapstructure:"-"`
}

// WebhookChannel posts {"text": ...} to an incoming-webhook URL.
type WebhookChannel struct {
	name     string
	url      string
	username string
	client   *httpclient.Client
}

type webhookPayload struct {
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
}

// NewWebhookChannel creates a webhook channel.
func NewWebhookChannel(cfg WebhookConfig) (*WebhookChannel, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("notify: webhook url must not be blank")
	}
	if cfg.Name == "" {
		cfg.Name = "webhook"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	hc := httpclient.Config{Timeout: cfg.Timeout, Transport: cfg.Transport}
	if cfg.Retries == nil || *cfg.Retries {
		hc.Retry = httpclient.DefaultRetryConfig()
	}
	client, err := httpclient.New(hc)
	if err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}
	return &WebhookChannel{name: cfg.Name, url: cfg.URL, username: cfg.Username, client: client}, nil
}

// Name returns the channel name.
func (w *WebhookChannel) Name() string { return w.name }

// Send posts the message. Any non-2xx response is an error.
func (w *WebhookChannel) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.Message) == "" {
		return fmt.Errorf("notify: %s: message text is empty", w.name)
	}
	_, err := w.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   w.url,
		Body:   webhookPayload{Text: formatText(msg), Username: w.username},
	})
	if err != nil {
		return fmt.Errorf("notify: %s: %w", w.name, err)
	}
	return nil
}

// formatText appends metadata as "key: value" lines, keys sorted.
func formatText(msg Message) string {
	if len(msg.Metadata) == 0 {
		return msg.Message
	}
	keys := make([]string, 0, len(msg.Metadata))
	for k := range msg.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var b strings.Builder
	b.WriteString(msg.Message)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %v", k, msg.Metadata[k])
	}
	return b.String()
}
