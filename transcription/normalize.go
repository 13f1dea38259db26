package transcription

import (
	"encoding/json"
	"math"
	"slices"
	"strings"
)

// Finalize enforces the canonical Result invariants on r and returns it.
// Segments are stably sorted by start time and renumbered, inverted
// intervals are clamped so End >= Start, confidences are clamped into [0,1],
// and Duration and WordCount are derived from the segments and text.
func Finalize(r *Result) *Result {
	slices.SortStableFunc(r.Segments, func(a, b Segment) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})
	for i := range r.Segments {
		seg := &r.Segments[i]
		seg.ID = i
		if seg.Start < 0 {
			seg.Start = 0
		}
		if seg.End < seg.Start {
			seg.End = seg.Start
		}
		if seg.Confidence != nil {
			seg.Confidence = ClampConfidence(*seg.Confidence)
		}
	}
	if r.Segments == nil {
		r.Segments = []Segment{}
	}

	r.Duration = 0
	if n := len(r.Segments); n > 0 {
		r.Duration = r.Segments[n-1].End
	}
	r.Text = strings.TrimSpace(r.Text)
	r.WordCount = CountWords(r.Text)
	if r.Confidence != nil {
		r.Confidence = ClampConfidence(*r.Confidence)
	}
	return r
}

// CountWords returns the number of whitespace-separated tokens in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ClampConfidence returns v clamped into [0,1], or nil for NaN.
func ClampConfidence(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	v = math.Max(0, math.Min(1, v))
	return &v
}

// ConfidenceFromLogProb converts a natural-log probability to a confidence.
func ConfidenceFromLogProb(lp float64) *float64 {
	return ClampConfidence(math.Exp(lp))
}

// MeanConfidence averages the non-nil segment confidences. It returns nil
// when no segment carries one.
func MeanConfidence(segments []Segment) *float64 {
	var sum float64
	var n int
	for _, s := range segments {
		if s.Confidence != nil {
			sum += *s.Confidence
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return ClampConfidence(sum / float64(n))
}

// JoinText joins segment texts with single spaces.
func JoinText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// RawCopy returns raw as a json.RawMessage that does not alias the input.
func RawCopy(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

var languageNames = map[string]string{
	"afrikaans": "af", "arabic": "ar", "armenian": "hy", "azerbaijani": "az",
	"belarusian": "be", "bosnian": "bs", "bulgarian": "bg", "catalan": "ca",
	"chinese": "zh", "croatian": "hr", "czech": "cs", "danish": "da",
	"dutch": "nl", "english": "en", "estonian": "et", "finnish": "fi",
	"french": "fr", "galician": "gl", "german": "de", "greek": "el",
	"hebrew": "he", "hindi": "hi", "hungarian": "hu", "icelandic": "is",
	"indonesian": "id", "italian": "it", "japanese": "ja", "kannada": "kn",
	"kazakh": "kk", "korean": "ko", "latvian": "lv", "lithuanian": "lt",
	"macedonian": "mk", "malay": "ms", "marathi": "mr", "maori": "mi",
	"nepali": "ne", "norwegian": "no", "persian": "fa", "polish": "pl",
	"portuguese": "pt", "romanian": "ro", "russian": "ru", "serbian": "sr",
	"slovak": "sk", "slovenian": "sl", "spanish": "es", "swahili": "sw",
	"swedish": "sv", "tagalog": "tl", "tamil": "ta", "thai": "th",
	"turkish": "tr", "ukrainian": "uk", "urdu": "ur", "vietnamese": "vi",
	"welsh": "cy",
}

// ISO 639-2/3 codes some vendors report instead of 639-1.
var languageAlpha3 = map[string]string{
	"afr": "af", "ara": "ar", "bul": "bg", "cat": "ca", "ces": "cs", "cze": "cs",
	"cmn": "zh", "zho": "zh", "chi": "zh", "dan": "da", "deu": "de", "ger": "de",
	"ell": "el", "gre": "el", "eng": "en", "est": "et", "fas": "fa", "per": "fa",
	"fin": "fi", "fra": "fr", "fre": "fr", "heb": "he", "hin": "hi", "hrv": "hr",
	"hun": "hu", "ind": "id", "isl": "is", "ita": "it", "jpn": "ja", "kor": "ko",
	"lav": "lv", "lit": "lt", "msa": "ms", "nld": "nl", "dut": "nl", "nor": "no",
	"pol": "pl", "por": "pt", "ron": "ro", "rum": "ro", "rus": "ru", "slk": "sk",
	"slv": "sl", "spa": "es", "srp": "sr", "swa": "sw", "swe": "sv", "tam": "ta",
	"tha": "th", "tur": "tr", "ukr": "uk", "urd": "ur", "vie": "vi", "cym": "cy",
}

// NormalizeLanguage maps vendor language values ("english", "eng", "en-US")
// to an ISO 639-1 code. Unrecognized values yield "".
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	switch {
	case lang == "":
		return ""
	case len(lang) == 2:
		return lang
	}
	if code, ok := languageAlpha3[lang]; ok {
		return code
	}
	return languageNames[lang]
}
