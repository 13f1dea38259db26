package transcription

import (
	"os"

	"github.com/kbukum/sttkit/errors"
)

// AssumedBitrate is the bitrate used to turn a file size into a duration
// for cost estimates.
const AssumedBitrate = 128_000

// EstimateMinutes returns the approximate audio length in minutes of a file
// of size bytes at AssumedBitrate.
func EstimateMinutes(size int64) float64 {
	if size <= 0 {
		return 0
	}
	return float64(size) * 8 / AssumedBitrate / 60
}

// EstimateCost returns the advisory cost of transcribing the file at path
// with a vendor charging pricePerMinute.
func EstimateCost(path string, pricePerMinute float64) (float64, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0, errors.NotFound("audio file", path).WithCause(err)
	}
	return EstimateMinutes(info.Size()) * pricePerMinute, nil
}
