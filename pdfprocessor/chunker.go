package pdfprocessor

import (
	"strings"
)

// ChunkerConfig holds configuration for text chunking.
type ChunkerConfig struct {
	// MaxChunkLength is the maximum chunk length in characters.
	// A single sentence unit longer than this becomes its own chunk.
	MaxChunkLength int

	// UnitSuffix is appended to every unit when packing. Defaults to "。".
	UnitSuffix string

	// Terminators configures the segmenter. Defaults to DefaultTerminators.
	Terminators string
}

// DefaultChunkerConfig returns the default configuration: 3000-character
// chunks of "。"-terminated units.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MaxChunkLength: 3000,
		UnitSuffix:     "。",
		Terminators:    DefaultTerminators,
	}
}

// ChunkResult represents a single chunk with metadata.
type ChunkResult struct {
	// Text is the whitespace-trimmed chunk content
	Text string

	// Index is the 0-based chunk index
	Index int

	// Units is the number of sentence units packed into the chunk
	Units int

	// Length is the chunk length in characters
	Length int
}

// ChunkerResult contains all chunks and metadata from a chunking operation.
type ChunkerResult struct {
	// Chunks is the ordered list of chunks
	Chunks []ChunkResult

	// TotalChunks is the number of chunks produced
	TotalChunks int

	// OversizedChunks counts chunks longer than MaxChunkLength, each of
	// which holds exactly one unit
	OversizedChunks int

	// TotalLength is the combined length of all chunks
	TotalLength int
}

// Chunker packs sentence units into chunks no longer than a maximum length.
//
// Thread-Safety:
//   - Chunker is safe for concurrent use (stateless)
type Chunker struct {
	config    ChunkerConfig
	segmenter *Segmenter
}

// NewChunker creates a new Chunker with the given configuration.
func NewChunker(config ChunkerConfig) *Chunker {
	defaults := DefaultChunkerConfig()
	if config.MaxChunkLength <= 0 {
		config.MaxChunkLength = defaults.MaxChunkLength
	}
	if config.UnitSuffix == "" {
		config.UnitSuffix = defaults.UnitSuffix
	}

	return &Chunker{
		config:    config,
		segmenter: NewSegmenter(config.Terminators),
	}
}

// NewDefaultChunker creates a Chunker with default configuration.
func NewDefaultChunker() *Chunker {
	return NewChunker(DefaultChunkerConfig())
}

// MaxChunkLength returns the configured maximum.
func (c *Chunker) MaxChunkLength() int {
	return c.config.MaxChunkLength
}

// SplitIntoChunks segments text and packs the units into chunks.
// Empty input returns an empty result.
//
// Example:
//
//	chunker := NewChunker(ChunkerConfig{MaxChunkLength: 2500})
//	result := chunker.SplitIntoChunks(longText)
//	for _, chunk := range result.Chunks {
//	    fmt.Println(chunk.Index, chunk.Length)
//	}
func (c *Chunker) SplitIntoChunks(text string) *ChunkerResult {
	return c.BuildChunks(c.segmenter.Segment(text))
}

// BuildChunks greedily packs units in order.
//
// Each unit is appended with UnitSuffix. When appending the next unit would
// push a non-empty buffer past MaxChunkLength, the buffer is sealed as a
// chunk and the unit starts a new one. Boundaries therefore always fall
// between units.
func (c *Chunker) BuildChunks(units []string) *ChunkerResult {
	result := &ChunkerResult{Chunks: make([]ChunkResult, 0)}

	var (
		buffer      strings.Builder
		bufferLen   int
		bufferUnits int
	)
	suffixLen := TextLength(c.config.UnitSuffix)

	seal := func() {
		text := strings.TrimSpace(buffer.String())
		buffer.Reset()
		bufferLen = 0
		units := bufferUnits
		bufferUnits = 0
		if text == "" {
			return
		}

		length := TextLength(text)
		result.Chunks = append(result.Chunks, ChunkResult{
			Text:   text,
			Index:  len(result.Chunks),
			Units:  units,
			Length: length,
		})
		result.TotalLength += length
		if length > c.config.MaxChunkLength {
			result.OversizedChunks++
		}
	}

	for _, unit := range units {
		unitLen := TextLength(unit) + suffixLen
		if bufferLen+unitLen > c.config.MaxChunkLength && bufferLen > 0 {
			seal()
		}
		buffer.WriteString(unit)
		buffer.WriteString(c.config.UnitSuffix)
		bufferLen += unitLen
		bufferUnits++
	}
	seal()

	result.TotalChunks = len(result.Chunks)
	return result
}

// ChunksToStrings extracts just the text from chunks.
func ChunksToStrings(result *ChunkerResult) []string {
	if result == nil {
		return nil
	}
	texts := make([]string, len(result.Chunks))
	for i, chunk := range result.Chunks {
		texts[i] = chunk.Text
	}
	return texts
}
