package subtitle

import "errors"

// Format tags understood by the codec.
const (
	FormatSRT = "srt"
	FormatVTT = "vtt"
	FormatSBV = "sbv"
	FormatSUB = "sub"
	FormatASS = "ass"
	FormatSTL = "stl" // STL exports are close enough to SRT to share its parser
)

var (
	// ErrUnsupportedFormat is returned by Parse when the format tag is unknown.
	ErrUnsupportedFormat = errors.New("unsupported subtitle format")

	// ErrMalformedInput is returned when content lacks structure the format requires,
	// e.g. an ASS file without an [Events] section.
	ErrMalformedInput = errors.New("malformed subtitle input")
)

// Entry is a single caption unit. Timestamps are kept in the source
// format's native notation; the writers emit them verbatim, so converting
// between formats with different notations is the caller's concern.
type Entry struct {
	Index     int    `json:"index"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Text      string `json:"text"`
}
