// Package chunker splits document content into overlapping token-bounded
// windows, the unit of retrieval.
package chunker

import "strings"

// DefaultMaxTokens is the default window size in tokens.
const DefaultMaxTokens = 200

// DefaultOverlap is the default number of tokens shared between
// consecutive windows.
const DefaultOverlap = 40

// DefaultMinTokens is the smallest window worth emitting on its own. A
// trailing fragment below this is merged into the previous window instead
// of becoming a near-empty chunk.
const DefaultMinTokens = 20

// Window is one chunk-sized slice of a document's content.
type Window struct {
	// Text is the window content.
	Text string

	// Tokens is the token count of Text.
	Tokens int
}

// Splitter produces overlapping windows from text. Tokens are
// whitespace-delimited words; counting is deterministic and needs no
// model-specific tokenizer.
type Splitter struct {
	maxTokens int
	overlap   int
	minTokens int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithMaxTokens sets the window size in tokens.
func WithMaxTokens(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithOverlap sets the overlap between windows in tokens.
func WithOverlap(n int) Option {
	return func(s *Splitter) {
		if n >= 0 {
			s.overlap = n
		}
	}
}

// WithMinTokens sets the minimum size of a trailing window.
func WithMinTokens(n int) Option {
	return func(s *Splitter) {
		if n >= 0 {
			s.minTokens = n
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		maxTokens: DefaultMaxTokens,
		overlap:   DefaultOverlap,
		minTokens: DefaultMinTokens,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Overlap must leave room to advance
	if s.overlap >= s.maxTokens {
		s.overlap = s.maxTokens / 4
	}
	if s.minTokens > s.maxTokens {
		s.minTokens = s.maxTokens
	}

	return s
}

// CountTokens returns the token count of a text.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// Split divides content into overlapping windows. Empty content produces
// no windows. Windows advance by (maxTokens - overlap); a final window
// smaller than minTokens is merged into the one before it.
func (s *Splitter) Split(content string) []Window {
	words := strings.Fields(content)
	if len(words) == 0 {
		return nil
	}

	step := s.maxTokens - s.overlap

	type span struct{ start, end int }
	var spans []span
	for start := 0; start < len(words); start += step {
		end := start + s.maxTokens
		if end > len(words) {
			end = len(words)
		}
		spans = append(spans, span{start, end})
		if end == len(words) {
			break
		}
	}

	// Merge an undersized tail into the previous window.
	if len(spans) > 1 {
		last := spans[len(spans)-1]
		if last.end-last.start < s.minTokens {
			spans = spans[:len(spans)-1]
			spans[len(spans)-1].end = last.end
		}
	}

	windows := make([]Window, 0, len(spans))
	for _, sp := range spans {
		text := strings.Join(words[sp.start:sp.end], " ")
		windows = append(windows, Window{Text: text, Tokens: sp.end - sp.start})
	}

	return windows
}
