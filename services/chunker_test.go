package services

import (
	"strings"
	"testing"

	"eduvisor-backend/internal/config"
)

func newTestChunker(size, overlap int) *Chunker {
	return NewChunker(&config.Config{ChunkSize: size, ChunkOverlap: overlap})
}

func TestShortPagesOneChunkEach(t *testing.T) {
	c := newTestChunker(3000, 100)

	pages := []PageText{
		{Page: 1, Text: "Introduction to microcontrollers."},
		{Page: 2, Text: "Timers and interrupts."},
		{Page: 3, Text: "GPIO configuration."},
	}

	chunks := c.Chunk("lecture1", pages)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.ChunkIndex != 1 {
			t.Errorf("chunk %d has index %d, want 1", i, chunk.ChunkIndex)
		}
		if chunk.Page != i+1 {
			t.Errorf("chunk %d has page %d, want %d", i, chunk.Page, i+1)
		}
		if chunk.Title != "lecture1" {
			t.Errorf("chunk %d has title %q", i, chunk.Title)
		}
		if chunk.Content != pages[i].Text {
			t.Errorf("short page content must pass through unchanged")
		}
	}
}

func TestEmptyPageYieldsNoChunks(t *testing.T) {
	c := newTestChunker(3000, 100)

	chunks := c.Chunk("lecture1", []PageText{
		{Page: 1, Text: ""},
		{Page: 2, Text: "   \n\t  "},
		{Page: 3, Text: "actual content"},
	})

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Page != 3 {
		t.Errorf("surviving chunk should come from page 3, got page %d", chunks[0].Page)
	}
}

func TestTwoDocumentsChunkCount(t *testing.T) {
	c := newTestChunker(3000, 100)

	pagesOf := func(n int) []PageText {
		pages := make([]PageText, n)
		for i := range pages {
			pages[i] = PageText{Page: i + 1, Text: "slide body text"}
		}
		return pages
	}

	total := len(c.Chunk("deckA", pagesOf(3))) + len(c.Chunk("deckB", pagesOf(5)))
	if total != 8 {
		t.Fatalf("expected 8 chunks across both documents, got %d", total)
	}
}

func longPageText() string {
	var b strings.Builder
	words := []string{"signal", "register", "interrupt", "voltage", "sensor", "protocol"}
	for i := 0; b.Len() < 400; i++ {
		b.WriteString(words[i%len(words)])
		if i%12 == 11 {
			b.WriteString(". ")
		} else {
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}

func TestLongPageSplitProperties(t *testing.T) {
	const size, overlap = 80, 10
	c := newTestChunker(size, overlap)

	text := longPageText()
	chunks := c.Chunk("lecture2", []PageText{{Page: 1, Text: text}})
	if len(chunks) < 2 {
		t.Fatalf("expected long page to split into multiple chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if chunk.ChunkIndex != i+1 {
			t.Errorf("chunk %d has index %d, want %d", i, chunk.ChunkIndex, i+1)
		}
		if len([]rune(chunk.Content)) > size {
			t.Errorf("chunk %d exceeds the size limit: %d", i, len([]rune(chunk.Content)))
		}
		if chunk.Content == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}

	// Consecutive chunks share exactly the configured overlap.
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Content)
		cur := []rune(chunks[i].Content)
		if string(prev[len(prev)-overlap:]) != string(cur[:overlap]) {
			t.Errorf("chunks %d and %d do not share the overlap region", i-1, i)
		}
	}

	// Dropping each subsequent chunk's overlap prefix reconstructs the page.
	var b strings.Builder
	b.WriteString(chunks[0].Content)
	for i := 1; i < len(chunks); i++ {
		runes := []rune(chunks[i].Content)
		b.WriteString(string(runes[overlap:]))
	}
	if b.String() != text {
		t.Fatal("concatenating chunks minus overlap must reconstruct the page text")
	}
}

func TestChunkingDeterministic(t *testing.T) {
	c := newTestChunker(80, 10)
	pages := []PageText{{Page: 1, Text: longPageText()}}

	first := c.Chunk("deck", pages)
	second := c.Chunk("deck", pages)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Content != second[i].Content {
			t.Errorf("chunk %d boundaries differ between runs", i)
		}
	}
}

func TestBoundaryFreeTextStillSplits(t *testing.T) {
	const size, overlap = 50, 10
	c := newTestChunker(size, overlap)

	text := strings.Repeat("x", 180)
	chunks := c.Chunk("wall", []PageText{{Page: 1, Text: text}})
	if len(chunks) < 2 {
		t.Fatalf("expected wall of text to split, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk.Content) > size {
			t.Errorf("chunk %d exceeds size limit", i)
		}
	}

	var b strings.Builder
	b.WriteString(chunks[0].Content)
	for i := 1; i < len(chunks); i++ {
		b.WriteString(chunks[i].Content[overlap:])
	}
	if b.String() != text {
		t.Fatal("reconstruction failed for boundary-free text")
	}
}
