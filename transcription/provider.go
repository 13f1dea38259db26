// Package transcription defines the speech-to-text provider contract, the
// canonical result shape and the registry and router that sit above the
// individual vendor integrations.
package transcription

import (
	"context"

	"github.com/kbukum/sttkit/provider"
)

// Provider is the interface that transcription backends must implement.
type Provider interface {
	provider.Provider // Name() and IsAvailable(), which calls Initialize()

	// Initialize resolves the provider's credentials and reports whether
	// they are present. It is safe to call repeatedly.
	Initialize() bool

	// Transcribe sends the audio file at audioPath to the vendor and returns
	// the normalized result.
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error)

	// FormatResponse maps a raw vendor payload to a Result. It does no I/O.
	FormatResponse(raw []byte, processingTimeMs int64) (*Result, error)

	// Capabilities returns the provider's static limits.
	Capabilities() Capabilities

	// EstimateCost returns an advisory cost in USD for transcribing audioPath.
	EstimateCost(audioPath string) (float64, error)
}
