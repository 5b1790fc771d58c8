package chunker

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		s := New()
		if s.maxTokens != DefaultMaxTokens {
			t.Errorf("expected maxTokens %d, got %d", DefaultMaxTokens, s.maxTokens)
		}
		if s.overlap != DefaultOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultOverlap, s.overlap)
		}
		if s.minTokens != DefaultMinTokens {
			t.Errorf("expected minTokens %d, got %d", DefaultMinTokens, s.minTokens)
		}
	})

	t.Run("overlap exceeding window size is reduced", func(t *testing.T) {
		s := New(WithMaxTokens(10), WithOverlap(15))
		if s.overlap >= s.maxTokens {
			t.Errorf("overlap %d not reduced below maxTokens %d", s.overlap, s.maxTokens)
		}
	})

	t.Run("non-positive options ignored", func(t *testing.T) {
		s := New(WithMaxTokens(0), WithOverlap(-1), WithMinTokens(-1))
		if s.maxTokens != DefaultMaxTokens || s.overlap != DefaultOverlap || s.minTokens != DefaultMinTokens {
			t.Error("expected defaults for non-positive options")
		}
	})
}

func TestSplit_Empty(t *testing.T) {
	s := New()
	if got := s.Split(""); got != nil {
		t.Errorf("expected nil windows for empty content, got %d", len(got))
	}
	if got := s.Split("   \n\t "); got != nil {
		t.Errorf("expected nil windows for whitespace content, got %d", len(got))
	}
}

func TestSplit_SingleWindow(t *testing.T) {
	s := New(WithMaxTokens(10), WithOverlap(2), WithMinTokens(2))
	windows := s.Split("one two three four")

	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	if windows[0].Text != "one two three four" {
		t.Errorf("unexpected window text: %q", windows[0].Text)
	}
	if windows[0].Tokens != 4 {
		t.Errorf("expected 4 tokens, got %d", windows[0].Tokens)
	}
}

func TestSplit_OverlappingWindows(t *testing.T) {
	words := make([]string, 25)
	for i := range words {
		words[i] = "w"
	}
	s := New(WithMaxTokens(10), WithOverlap(2), WithMinTokens(2))

	windows := s.Split(strings.Join(words, " "))

	// step = 8: windows start at 0, 8, 16 and the tail at 24 (1 token)
	// is merged into the previous window.
	if len(windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(windows))
	}
	if windows[0].Tokens != 10 || windows[1].Tokens != 10 {
		t.Errorf("expected full windows of 10 tokens, got %d and %d", windows[0].Tokens, windows[1].Tokens)
	}
	// last span covers words 16..25 after merging the single-token tail
	if windows[2].Tokens != 9 {
		t.Errorf("expected merged final window of 9 tokens, got %d", windows[2].Tokens)
	}
}

func TestSplit_TailMerge(t *testing.T) {
	// 12 words, window 10, overlap 0, min 5: the 2-word tail must merge
	// into the first window rather than appear as a near-empty chunk.
	words := strings.Repeat("x ", 12)
	s := New(WithMaxTokens(10), WithOverlap(0), WithMinTokens(5))

	windows := s.Split(words)

	if len(windows) != 1 {
		t.Fatalf("expected 1 merged window, got %d", len(windows))
	}
	if windows[0].Tokens != 12 {
		t.Errorf("expected merged window of 12 tokens, got %d", windows[0].Tokens)
	}
}

func TestSplit_TailAboveMinimumKept(t *testing.T) {
	words := strings.Repeat("x ", 16)
	s := New(WithMaxTokens(10), WithOverlap(0), WithMinTokens(5))

	windows := s.Split(words)

	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if windows[1].Tokens != 6 {
		t.Errorf("expected final window of 6 tokens, got %d", windows[1].Tokens)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	content := strings.Repeat("alpha beta gamma delta ", 40)
	s := New(WithMaxTokens(16), WithOverlap(4))

	first := s.Split(content)
	second := s.Split(content)

	if len(first) != len(second) {
		t.Fatalf("window counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("window %d differs between runs", i)
		}
	}
}

func TestCountTokens(t *testing.T) {
	if got := CountTokens("a b  c\nd"); got != 4 {
		t.Errorf("expected 4 tokens, got %d", got)
	}
	if got := CountTokens(""); got != 0 {
		t.Errorf("expected 0 tokens, got %d", got)
	}
}
