package subtitle

import (
	"bytes"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/ianaindex"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeBytes converts raw file bytes to a UTF-8 string, detecting the
// source charset from content so non-Latin scripts survive the trip.
// Every failure path falls back to interpreting the bytes as UTF-8.
func decodeBytes(raw []byte) string {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if len(raw) == 0 {
		return ""
	}
	if utf8.Valid(raw) {
		return string(raw)
	}

	result, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil {
		return string(raw)
	}
	enc, err := ianaindex.IANA.Encoding(result.Charset)
	if err != nil || enc == nil {
		return string(raw)
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
