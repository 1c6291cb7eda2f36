package subtitle

import (
	"strconv"
	"strings"
)

type formatFunc func(entries []Entry) string

var formatters = map[string]formatFunc{
	FormatSRT: formatSRT,
	FormatVTT: formatVTT,
}

// Format serializes entries into the requested caption format. An unknown
// tag silently degrades to SRT so an output-format typo never fails a
// finished batch.
func Format(entries []Entry, formatTag string) string {
	formatter, ok := formatters[strings.ToLower(formatTag)]
	if !ok {
		formatter = formatSRT
	}
	return formatter(entries)
}

func formatSRT(entries []Entry) string {
	lines := make([]string, 0, len(entries)*4)
	for _, entry := range entries {
		lines = append(lines,
			strconv.Itoa(entry.Index),
			entry.StartTime+" --> "+entry.EndTime,
			entry.Text,
			"")
	}
	return strings.Join(lines, "\n")
}

func formatVTT(entries []Entry) string {
	lines := make([]string, 0, len(entries)*3+2)
	lines = append(lines, "WEBVTT", "")
	for _, entry := range entries {
		lines = append(lines,
			entry.StartTime+" --> "+entry.EndTime,
			entry.Text,
			"")
	}
	return strings.Join(lines, "\n")
}
