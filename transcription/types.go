package transcription

import (
	"encoding/json"
	"slices"
	"strings"
)

// Options are the caller's per-call transcription settings.
type Options struct {
	// Language is an ISO 639-1 hint (e.g. "en"). Empty lets the provider detect it.
	Language string `json:"language,omitempty"`
	// Diarize asks the provider to label segments with speakers.
	Diarize bool `json:"diarize,omitempty"`
	// Timestamps requests segment timing. Nil means true.
	Timestamps *bool `json:"timestamps,omitempty"`
}

// WantTimestamps reports whether segment timing was requested.
func (o Options) WantTimestamps() bool {
	return o.Timestamps == nil || *o.Timestamps
}

// Segment is a time-aligned portion of a transcript.
type Segment struct {
	// ID is the 0-based position of the segment in Result.Segments.
	ID int `json:"id"`
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds, never before Start.
	End float64 `json:"end"`
	// Text is the transcribed text for this segment.
	Text string `json:"text"`
	// Confidence is in [0,1], nil when the provider reports none.
	Confidence *float64 `json:"confidence"`
	// Speaker is the identified speaker label, if available.
	Speaker string `json:"speaker,omitempty"`
}

// Result is the canonical transcription produced by every provider.
type Result struct {
	Text string `json:"text"`
	// Language is the detected or requested ISO 639-1 code, empty when unknown.
	Language string `json:"language,omitempty"`
	// Duration is the end of the last segment, 0 without segments.
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
	// WordCount is the number of whitespace-separated tokens in Text.
	WordCount        int      `json:"word_count"`
	Confidence       *float64 `json:"confidence"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	// Provider is the Name() of the provider that produced the result.
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	// Raw is the vendor payload exactly as received.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Capabilities is a provider's static limits descriptor.
type Capabilities struct {
	Name             string `json:"name"`
	MaxFileSizeBytes int64  `json:"max_file_size_bytes"`
	// SupportedFormats are lowercase file extensions without the dot.
	SupportedFormats []string `json:"supported_formats"`
	// SupportedLanguages are ISO 639-1 codes. Empty means any language.
	SupportedLanguages []string `json:"supported_languages,omitempty"`
}

// SupportsFormat reports whether ext (with or without a leading dot, any case)
// is accepted.
func (c Capabilities) SupportsFormat(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	return ext != "" && slices.Contains(c.SupportedFormats, ext)
}

// SupportsLanguage reports whether lang is accepted. An empty lang (auto
// detect) is always accepted.
func (c Capabilities) SupportsLanguage(lang string) bool {
	if lang == "" || len(c.SupportedLanguages) == 0 {
		return true
	}
	return slices.Contains(c.SupportedLanguages, strings.ToLower(lang))
}

// Clone returns a copy that shares no slices with c.
func (c Capabilities) Clone() Capabilities {
	c.SupportedFormats = slices.Clone(c.SupportedFormats)
	c.SupportedLanguages = slices.Clone(c.SupportedLanguages)
	return c
}
