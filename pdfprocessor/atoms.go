// Package pdfprocessor turns extracted PDF text into a summary.
//
// Short text is summarized with a single completion. Longer text is split
// into sentence-aligned chunks, each chunk is summarized, and the partial
// summaries are merged by one final completion. The Processor owns the
// completion engine and exposes its lifecycle as an observable State.
package pdfprocessor

import "unicode/utf8"

// TextLength returns the length of text in characters (Unicode code
// points), the unit every size threshold in this package uses.
//
// Example:
//
//	TextLength("あいう") // Returns 3
//	TextLength("abc")    // Returns 3
func TextLength(text string) int {
	return utf8.RuneCountInString(text)
}

// EstimateTokenCount provides a rough token estimate for logging.
// Japanese text averages roughly one token per character and English
// roughly one per four, so the estimate uses the larger of characters/4
// and the non-ASCII character count.
//
// Example:
//
//	EstimateTokenCount("Hello, world!") // Returns 3
//	EstimateTokenCount("こんにちは")    // Returns 5
func EstimateTokenCount(text string) int {
	if text == "" {
		return 0
	}
	wide := 0
	for _, r := range text {
		if r >= utf8.RuneSelf {
			wide++
		}
	}
	return max(TextLength(text)/4, wide)
}

// TruncateText truncates text to at most maxLen characters without
// splitting a multi-byte character.
//
// Example:
//
//	TruncateText("こんにちは", 2) // Returns "こん"
//	TruncateText("Hi", 10)        // Returns "Hi"
func TruncateText(text string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == maxLen {
			return text[:i]
		}
		count++
	}
	return text
}
