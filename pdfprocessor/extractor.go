package pdfprocessor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrNoPDFContent means every page was empty or unreadable.
	ErrNoPDFContent = errors.New("no text content found in PDF")

	ErrEmptyPath = errors.New("empty PDF path provided")
	ErrEmptyData = errors.New("empty PDF data provided")
)

// PageText is the text of one page. Number is 1-based.
type PageText struct {
	Number int
	Text   string
	Err    error
}

// ExtractionResult is the text of a whole document plus page accounting.
type ExtractionResult struct {
	// Text joins the non-empty pages with the configured separator
	Text string

	// Title comes from the document information dictionary, if any
	Title string

	TotalPages     int
	ExtractedPages int
	SkippedPages   int

	// Length is TextLength(Text)
	Length int

	Pages      []PageText
	PageErrors []error
}

// ExtractorConfig controls page handling.
type ExtractorConfig struct {
	// PageSeparator is placed between pages (default: "\n", which the
	// segmenter treats as a sentence boundary)
	PageSeparator string

	// StrictPages aborts on the first page that fails to decode instead of
	// skipping it
	StrictPages bool

	// MaxPages stops after this many pages; 0 reads them all
	MaxPages int
}

// DefaultExtractorConfig reads every page and skips unreadable ones.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{PageSeparator: "\n"}
}

// Extractor turns PDF documents into plain text.
type Extractor struct {
	config ExtractorConfig
}

func NewExtractor(config ExtractorConfig) *Extractor {
	if config.PageSeparator == "" {
		config.PageSeparator = "\n"
	}
	return &Extractor{config: config}
}

func NewDefaultExtractor() *Extractor {
	return NewExtractor(DefaultExtractorConfig())
}

// Extract reads the PDF at path. The CLI uses this.
func (e *Extractor) Extract(path string) (result *ExtractionResult, err error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	defer recoverParse(&result, &err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	return e.read(r)
}

// ExtractBytes reads an in-memory PDF such as an upload.
func (e *Extractor) ExtractBytes(data []byte) (result *ExtractionResult, err error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	defer recoverParse(&result, &err)

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}
	return e.read(r)
}

// recoverParse turns a parser panic into an error. ledongthuc/pdf panics on
// some malformed cross-reference tables and font encodings.
func recoverParse(result **ExtractionResult, err *error) {
	if rec := recover(); rec != nil {
		*result = nil
		*err = fmt.Errorf("failed to parse PDF: %v", rec)
	}
}

func (e *Extractor) read(r *pdf.Reader) (*ExtractionResult, error) {
	total := r.NumPage()
	limit := total
	if e.config.MaxPages > 0 && e.config.MaxPages < total {
		limit = e.config.MaxPages
	}

	result := &ExtractionResult{
		Title:      documentTitle(r),
		TotalPages: total,
		Pages:      make([]PageText, 0, limit),
	}

	texts := make([]string, 0, limit)
	for n := 1; n <= limit; n++ {
		page := readPage(r, n)
		result.Pages = append(result.Pages, page)

		switch {
		case page.Err != nil:
			result.SkippedPages++
			result.PageErrors = append(result.PageErrors, fmt.Errorf("page %d: %w", n, page.Err))
			if e.config.StrictPages {
				return result, result.PageErrors[len(result.PageErrors)-1]
			}
		case page.Text == "":
			result.SkippedPages++
		default:
			result.ExtractedPages++
			texts = append(texts, page.Text)
		}
	}

	result.Text = strings.Join(texts, e.config.PageSeparator)
	result.Length = TextLength(result.Text)
	if result.Text == "" {
		return result, ErrNoPDFContent
	}
	return result, nil
}

func readPage(r *pdf.Reader, n int) PageText {
	page := PageText{Number: n}

	p := r.Page(n)
	if p.V.IsNull() {
		return page
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		page.Err = fmt.Errorf("failed to extract text: %w", err)
		return page
	}
	page.Text = normalizePageText(text)
	return page
}

// normalizePageText unifies line endings, strips trailing spaces and
// collapses runs of blank lines into one.
func normalizePageText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t　")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func documentTitle(r *pdf.Reader) string {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	return strings.TrimSpace(info.Key("Title").Text())
}
