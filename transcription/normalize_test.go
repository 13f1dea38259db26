package transcription

import (
	"math"
	"reflect"
	"testing"
)

func TestFinalize_SortsAndNumbers(t *testing.T) {
	r := Finalize(&Result{
		Text: "c a b",
		Segments: []Segment{
			{ID: 9, Start: 2, End: 3, Text: "c"},
			{ID: 9, Start: 0, End: 1, Text: "a"},
			{ID: 9, Start: 1, End: 0.5, Text: "b"},
		},
	})
	for i, seg := range r.Segments {
		if seg.ID != i {
			t.Errorf("segment %d has id %d", i, seg.ID)
		}
		if seg.End < seg.Start {
			t.Errorf("segment %d ends before it starts", i)
		}
		if i > 0 && r.Segments[i-1].Start > seg.Start {
			t.Errorf("segments not sorted at %d", i)
		}
	}
	if r.Segments[0].Text != "a" || r.Segments[1].Text != "b" || r.Segments[2].Text != "c" {
		t.Errorf("unexpected order %+v", r.Segments)
	}
	if r.Duration != 3 {
		t.Errorf("expected duration 3, got %v", r.Duration)
	}
}

func TestFinalize_StableForEqualStarts(t *testing.T) {
	r := Finalize(&Result{Segments: []Segment{
		{Start: 1, End: 2, Text: "first"},
		{Start: 1, End: 1.5, Text: "second"},
		{Start: 0, End: 1, Text: "zero"},
	}})
	if r.Segments[1].Text != "first" || r.Segments[2].Text != "second" {
		t.Errorf("equal starts must keep input order, got %+v", r.Segments)
	}
	if r.Duration != 1.5 {
		t.Errorf("duration is the last segment's end, got %v", r.Duration)
	}
}

func TestFinalize_Empty(t *testing.T) {
	r := Finalize(&Result{})
	if r.Duration != 0 || r.WordCount != 0 {
		t.Errorf("expected zero duration and words, got %v %d", r.Duration, r.WordCount)
	}
	if r.Segments == nil || len(r.Segments) != 0 {
		t.Errorf("expected empty non-nil segments, got %#v", r.Segments)
	}
}

func TestFinalize_ClampsConfidence(t *testing.T) {
	r := Finalize(&Result{
		Confidence: Float(1.7),
		Segments: []Segment{
			{Start: 0, End: 1, Confidence: Float(-0.2)},
			{Start: 1, End: 2, Confidence: Float(math.NaN())},
		},
	})
	if *r.Confidence != 1 {
		t.Errorf("expected result confidence 1, got %v", *r.Confidence)
	}
	if *r.Segments[0].Confidence != 0 {
		t.Errorf("expected clamped 0, got %v", *r.Segments[0].Confidence)
	}
	if r.Segments[1].Confidence != nil {
		t.Error("NaN confidence should become nil")
	}
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"hello", 1},
		{"hello world test", 3},
		{"  tabs\tand\nnewlines  ", 3},
	}
	for _, tc := range tests {
		if got := CountWords(tc.text); got != tc.want {
			t.Errorf("CountWords(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestConfidenceHelpers(t *testing.T) {
	if got := *ConfidenceFromLogProb(0); got != 1 {
		t.Errorf("exp(0) should be 1, got %v", got)
	}
	if got := *ConfidenceFromLogProb(math.Log(0.25)); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("expected 0.25, got %v", got)
	}
	if MeanConfidence([]Segment{{}, {}}) != nil {
		t.Error("expected nil mean without confidences")
	}
	mean := MeanConfidence([]Segment{{Confidence: Float(0.5)}, {}, {Confidence: Float(1)}})
	if mean == nil || *mean != 0.75 {
		t.Errorf("expected 0.75, got %v", mean)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"":        "",
		"en":      "en",
		"EN":      "en",
		"en-US":   "en",
		"english": "en",
		"German":  "de",
		"eng":     "en",
		"spa":     "es",
		"klingon": "",
	}
	for in, want := range tests {
		if got := NormalizeLanguage(in); got != want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRawCopy(t *testing.T) {
	src := []byte(`{"a":1}`)
	raw := RawCopy(src)
	src[0] = 'x'
	if string(raw) != `{"a":1}` {
		t.Errorf("RawCopy must not alias input, got %s", raw)
	}
	if RawCopy(nil) != nil {
		t.Error("expected nil for empty input")
	}
}

func TestCapabilities(t *testing.T) {
	c := Capabilities{SupportedFormats: []string{"mp3", "wav"}, SupportedLanguages: []string{"en"}}
	if !c.SupportsFormat(".MP3") || !c.SupportsFormat("wav") {
		t.Error("expected mp3 and wav to be supported")
	}
	if c.SupportsFormat("") || c.SupportsFormat("flac") {
		t.Error("expected empty and flac to be unsupported")
	}
	if !c.SupportsLanguage("") || !c.SupportsLanguage("EN") || c.SupportsLanguage("de") {
		t.Error("unexpected language support")
	}
	if !(Capabilities{}).SupportsLanguage("de") {
		t.Error("empty language list accepts any language")
	}

	clone := c.Clone()
	clone.SupportedFormats[0] = "mutated"
	if c.SupportedFormats[0] != "mp3" {
		t.Error("Clone must copy slices")
	}
	if !reflect.DeepEqual(c.Clone(), c) {
		t.Error("Clone should be equal to the original")
	}
}

func TestOptions_WantTimestamps(t *testing.T) {
	no := false
	if !(Options{}).WantTimestamps() {
		t.Error("timestamps default to true")
	}
	if (Options{Timestamps: &no}).WantTimestamps() {
		t.Error("explicit false must be honored")
	}
}

func TestEstimateCost(t *testing.T) {
	path := writeAudio(t, "a.mp3", 960_000) // 60s at 128 kbit/s
	cost, err := EstimateCost(path, 0.006)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(cost-0.006) > 1e-9 {
		t.Errorf("expected 0.006, got %v", cost)
	}
	if _, err := EstimateCost(path+".missing", 0.006); err == nil {
		t.Error("expected error for missing file")
	}
}
