package subtitle

import (
	"fmt"
	"regexp"
	"strings"
)

type parseFunc func(content string) ([]Entry, error)

var parsers = map[string]parseFunc{
	FormatSRT: parseSRT,
	FormatVTT: parseVTT,
	FormatSBV: parseSBV,
	FormatSUB: parseSUB,
	FormatASS: parseASS,
	FormatSTL: parseSRT,
}

// Parse decodes raw bytes and parses them as the given caption format.
// Entries are numbered sequentially from 1 in source order regardless of
// any numbering inside the file. Content that matches zero caption blocks
// yields an empty slice, not an error.
func Parse(raw []byte, formatTag string) ([]Entry, error) {
	parser, ok := parsers[strings.ToLower(formatTag)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, formatTag)
	}
	return parser(decodeBytes(raw))
}

// SupportedFormats lists every format tag Parse accepts.
func SupportedFormats() []string {
	return []string{FormatSRT, FormatVTT, FormatSBV, FormatSUB, FormatASS, FormatSTL}
}

var (
	srtTimeLine = regexp.MustCompile(`(\d{2}:\d{2}:\d{2},\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2},\d{3})`)
	vttTimeLine = regexp.MustCompile(`(\d{2}:\d{2}:\d{2}\.\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}\.\d{3})`)
	sbvTimeLine = regexp.MustCompile(`^(\d+:\d+:\d+\.\d+),(\d+:\d+:\d+\.\d+)\s*$`)
	subTimeLine = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2}\.\d{2}),(\d{2}:\d{2}:\d{2}\.\d{2})\s*$`)

	blankLineSplit = regexp.MustCompile(`\n[ \t]*\n`)
)

func normalizeNewlines(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

// splitBlocks cuts content into caption blocks on blank lines, tolerating
// trailing whitespace and a missing final blank line.
func splitBlocks(content string) []string {
	parts := blankLineSplit.Split(normalizeNewlines(content), -1)
	blocks := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			blocks = append(blocks, part)
		}
	}
	return blocks
}

// parseBlocks handles every blank-line separated grammar: locate the timing
// line inside each block, take everything after it as caption text, and drop
// blocks that never match. Leading lines before the timing line (sequence
// numbers, cue identifiers) are ignored.
func parseBlocks(content string, timeLine *regexp.Regexp) []Entry {
	var entries []Entry
	for _, block := range splitBlocks(content) {
		lines := strings.Split(block, "\n")

		textStart := -1
		var start, end string
		for i, line := range lines {
			if m := timeLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				start, end = m[1], m[2]
				textStart = i + 1
				break
			}
		}
		if textStart < 0 {
			continue
		}

		text := strings.TrimSpace(strings.Join(lines[textStart:], "\n"))
		if text == "" {
			continue
		}

		entries = append(entries, Entry{
			Index:     len(entries) + 1,
			StartTime: start,
			EndTime:   end,
			Text:      text,
		})
	}
	return entries
}

func parseSRT(content string) ([]Entry, error) {
	return parseBlocks(content, srtTimeLine), nil
}

func parseVTT(content string) ([]Entry, error) {
	// The WEBVTT header block carries no timing line, so parseBlocks skips
	// it naturally, along with NOTE and STYLE blocks.
	return parseBlocks(content, vttTimeLine), nil
}

func parseSBV(content string) ([]Entry, error) {
	return parseBlocks(content, sbvTimeLine), nil
}

func parseSUB(content string) ([]Entry, error) {
	entries := parseBlocks(content, subTimeLine)
	for i := range entries {
		// SubViewer marks in-caption line breaks with a literal token.
		entries[i].Text = strings.ReplaceAll(entries[i].Text, "[br]", "\n")
	}
	return entries, nil
}

var assTimestamp = regexp.MustCompile(`^\d+:\d{2}:\d{2}[.,]\d+$`)

func parseASS(content string) ([]Entry, error) {
	content = normalizeNewlines(content)

	eventsIdx := strings.Index(content, "[Events]")
	if eventsIdx < 0 {
		return nil, fmt.Errorf("%w: no Events section", ErrMalformedInput)
	}
	section := content[eventsIdx:]

	formatIdx := strings.Index(section, "Format:")
	if formatIdx < 0 {
		return nil, fmt.Errorf("%w: Events section has no Format header", ErrMalformedInput)
	}
	rest := section[formatIdx+len("Format:"):]
	formatLine := rest
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		formatLine = rest[:nl]
		rest = rest[nl+1:]
	} else {
		rest = ""
	}

	fields := strings.Split(formatLine, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	startIdx := indexOf(fields, "Start")
	endIdx := indexOf(fields, "End")
	textIdx := indexOf(fields, "Text")
	if startIdx < 0 || endIdx < 0 || textIdx < 0 {
		return nil, fmt.Errorf("%w: Format header missing Start/End/Text fields", ErrMalformedInput)
	}

	var entries []Entry
	for _, line := range strings.Split(rest, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Dialogue:") {
			continue
		}
		values, shift, ok := splitDialogue(strings.TrimPrefix(line, "Dialogue:"), fields, startIdx)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Index:     len(entries) + 1,
			StartTime: strings.TrimSpace(values[startIdx+shift]),
			EndTime:   strings.TrimSpace(values[endIdx+shift]),
			Text:      strings.TrimSpace(values[textIdx+shift]),
		})
	}
	return entries, nil
}

// splitDialogue splits a Dialogue value list against the declared Format
// fields. The split is capped at the declared field count so commas inside
// the trailing Text field survive. Files whose Format header omits the
// leading Layer/Marked field still carry its value on each Dialogue line;
// when the Start slot does not look like a timestamp, re-split with one
// extra slot and shift every lookup by one.
func splitDialogue(raw string, fields []string, startIdx int) (values []string, shift int, ok bool) {
	values = strings.SplitN(raw, ",", len(fields))
	if len(values) == len(fields) && assTimestamp.MatchString(strings.TrimSpace(values[startIdx])) {
		return values, 0, true
	}

	values = strings.SplitN(raw, ",", len(fields)+1)
	if len(values) == len(fields)+1 && assTimestamp.MatchString(strings.TrimSpace(values[startIdx+1])) {
		return values, 1, true
	}
	return nil, 0, false
}

func indexOf(fields []string, name string) int {
	for i, field := range fields {
		if field == name {
			return i
		}
	}
	return -1
}
