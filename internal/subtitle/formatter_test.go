package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSRT_ExactOutput(t *testing.T) {
	entries := []Entry{
		{Index: 1, StartTime: "00:00:01,000", EndTime: "00:00:03,500", Text: "Hi"},
	}

	got := Format(entries, FormatSRT)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:03,500\nHi\n", got)
}

func TestFormatSRT_MultipleEntries(t *testing.T) {
	entries := []Entry{
		{Index: 1, StartTime: "00:00:01,000", EndTime: "00:00:02,000", Text: "One"},
		{Index: 2, StartTime: "00:00:03,000", EndTime: "00:00:04,000", Text: "Two"},
	}

	got := Format(entries, FormatSRT)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nOne\n\n2\n00:00:03,000 --> 00:00:04,000\nTwo\n", got)
}

func TestFormatVTT(t *testing.T) {
	entries := []Entry{
		{Index: 1, StartTime: "00:00:01.000", EndTime: "00:00:02.000", Text: "One"},
	}

	got := Format(entries, FormatVTT)
	assert.Equal(t, "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nOne\n", got)
}

func TestFormat_UnknownTagFallsBackToSRT(t *testing.T) {
	entries := []Entry{
		{Index: 1, StartTime: "00:00:01,000", EndTime: "00:00:02,000", Text: "Hi"},
	}

	assert.Equal(t, Format(entries, FormatSRT), Format(entries, "mystery"))
}

func TestFormat_EmptyEntries(t *testing.T) {
	assert.Equal(t, "", Format(nil, FormatSRT))
	assert.Equal(t, "WEBVTT\n", Format(nil, FormatVTT))
}
