package pdfprocessor

import (
	"strings"
)

// DefaultTerminators are the characters that end a sentence unit:
// Japanese full stop, full-width period, full-width exclamation and
// question marks, and line breaks.
const DefaultTerminators = "。．！？\n\r"

// Segmenter splits text into sentence units.
//
// A run of consecutive terminators is a single boundary. Units are
// whitespace-trimmed and empty units are discarded; terminators are not
// part of the units.
//
// Thread-Safety:
//   - Segmenter is safe for concurrent use (stateless)
type Segmenter struct {
	terminators string
}

// NewSegmenter creates a Segmenter splitting on the given terminator
// characters. An empty set uses DefaultTerminators.
func NewSegmenter(terminators string) *Segmenter {
	if terminators == "" {
		terminators = DefaultTerminators
	}
	return &Segmenter{terminators: terminators}
}

// Segment returns the ordered sentence units of text.
//
// Example:
//
//	NewSegmenter("").Segment("今日は晴れ。明日は雨！\n") // ["今日は晴れ", "明日は雨"]
func (s *Segmenter) Segment(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(s.terminators, r)
	})

	units := make([]string, 0, len(fields))
	for _, f := range fields {
		if unit := strings.TrimSpace(f); unit != "" {
			units = append(units, unit)
		}
	}
	return units
}

// Segment splits text with DefaultTerminators.
func Segment(text string) []string {
	return NewSegmenter("").Segment(text)
}
