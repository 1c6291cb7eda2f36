package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSRT(t *testing.T) {
	raw := []byte("1\n00:00:01,000 --> 00:00:03,500\nHello World\n\n2\n00:00:04,000 --> 00:00:07,000\nThis is a test\n")

	entries, err := Parse(raw, FormatSRT)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, Entry{Index: 1, StartTime: "00:00:01,000", EndTime: "00:00:03,500", Text: "Hello World"}, entries[0])
	assert.Equal(t, Entry{Index: 2, StartTime: "00:00:04,000", EndTime: "00:00:07,000", Text: "This is a test"}, entries[1])
}

func TestParseSRT_ReindexesFromOne(t *testing.T) {
	raw := []byte("17\n00:00:01,000 --> 00:00:02,000\nFirst\n\n99\n00:00:03,000 --> 00:00:04,000\nSecond\n")

	entries, err := Parse(raw, FormatSRT)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Index)
	assert.Equal(t, 2, entries[1].Index)
}

func TestParseSRT_MultilineTextAndCRLF(t *testing.T) {
	raw := []byte("1\r\n00:00:01,000 --> 00:00:02,000\r\nLine one\r\nLine two\r\n\r\n")

	entries, err := Parse(raw, FormatSRT)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Line one\nLine two", entries[0].Text)
}

func TestParseSRT_DropsBlocksWithoutTiming(t *testing.T) {
	raw := []byte("just a stray note\n\n1\n00:00:01,000 --> 00:00:02,000\nKept\n")

	entries, err := Parse(raw, FormatSRT)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Kept", entries[0].Text)
}

func TestParse_EmptyInputIsNotAnError(t *testing.T) {
	for _, tag := range SupportedFormats() {
		if tag == FormatASS {
			// ASS requires its Events section even for an empty file.
			continue
		}
		entries, err := Parse(nil, tag)
		require.NoError(t, err, "format %s", tag)
		assert.Empty(t, entries, "format %s", tag)
	}
}

func TestParse_UnknownFormat(t *testing.T) {
	_, err := Parse([]byte("whatever"), "ttml")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParse_STLAliasesSRT(t *testing.T) {
	raw := []byte("1\n00:00:01,000 --> 00:00:02,000\nAliased\n")

	entries, err := Parse(raw, FormatSTL)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Aliased", entries[0].Text)
}

func TestParseVTT(t *testing.T) {
	raw := []byte("WEBVTT\n\n00:00:01.000 --> 00:00:03.000\nFirst cue\n\ncue-2\n00:00:04.000 --> 00:00:06.000\nSecond cue\nstill second\n")

	entries, err := Parse(raw, FormatVTT)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "00:00:01.000", entries[0].StartTime)
	assert.Equal(t, "00:00:03.000", entries[0].EndTime)
	assert.Equal(t, "First cue", entries[0].Text)
	// Cue identifier line before the timing line is ignored.
	assert.Equal(t, "Second cue\nstill second", entries[1].Text)
}

func TestParseVTT_HeaderOnly(t *testing.T) {
	entries, err := Parse([]byte("WEBVTT\n"), FormatVTT)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseSBV(t *testing.T) {
	raw := []byte("0:00:01.000,0:00:03.000\nHello SBV\n\n0:00:04.000,0:00:06.000\nSecond\n")

	entries, err := Parse(raw, FormatSBV)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "0:00:01.000", entries[0].StartTime)
	assert.Equal(t, "0:00:03.000", entries[0].EndTime)
	assert.Equal(t, "Hello SBV", entries[0].Text)
}

func TestParseSUB_BreakToken(t *testing.T) {
	raw := []byte("00:00:01.00,00:00:03.00\nFirst line[br]Second line\n")

	entries, err := Parse(raw, FormatSUB)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "00:00:01.00", entries[0].StartTime)
	assert.Equal(t, "First line\nSecond line", entries[0].Text)
}

func TestParseASS(t *testing.T) {
	raw := []byte(`[Script Info]
Title: sample

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
Dialogue: 0,0:00:01.00,0:00:03.00,Default,,0,0,0,,Hello ASS
Dialogue: 0,0:00:04.00,0:00:06.00,Default,,0,0,0,,Second line, with comma
`)

	entries, err := Parse(raw, FormatASS)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "0:00:01.00", entries[0].StartTime)
	assert.Equal(t, "0:00:03.00", entries[0].EndTime)
	assert.Equal(t, "Hello ASS", entries[0].Text)
	// Commas inside the trailing Text field are preserved.
	assert.Equal(t, "Second line, with comma", entries[1].Text)
}

func TestParseASS_ShortFormatHeader(t *testing.T) {
	raw := []byte("[Events]\nFormat: Start, End, Text\nDialogue: 0,0:00:01.00,0:00:03.00,Hello, world\n")

	entries, err := Parse(raw, FormatASS)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "0:00:01.00", entries[0].StartTime)
	assert.Equal(t, "0:00:03.00", entries[0].EndTime)
	assert.Equal(t, "Hello, world", entries[0].Text)
}

func TestParseASS_MissingEventsSection(t *testing.T) {
	_, err := Parse([]byte("[Script Info]\nTitle: nope\n"), FormatASS)
	require.ErrorIs(t, err, ErrMalformedInput)
}

func TestParseASS_MissingFormatHeader(t *testing.T) {
	_, err := Parse([]byte("[Events]\nDialogue: 0,0:00:01.00,0:00:03.00,Default,Hi\n"), FormatASS)
	require.ErrorIs(t, err, ErrMalformedInput)
}

func TestParse_RoundTripEntryCount(t *testing.T) {
	raw := []byte("1\n00:00:01,000 --> 00:00:02,000\nOne\n\n2\n00:00:03,000 --> 00:00:04,000\nTwo\n\n3\n00:00:05,000 --> 00:00:06,000\nThree\n")

	entries, err := Parse(raw, FormatSRT)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	reparsed, err := Parse([]byte(Format(entries, FormatSRT)), FormatSRT)
	require.NoError(t, err)
	assert.Len(t, reparsed, len(entries))
	assert.Equal(t, entries, reparsed)
}
