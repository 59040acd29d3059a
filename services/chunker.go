package services

import (
	"strings"

	"github.com/google/uuid"

	"eduvisor-backend/internal/config"
	"eduvisor-backend/models"
)

// Chunker splits extracted page text into retrieval-sized pieces.
// Splitting is deterministic: the same text and parameters always
// produce the same boundaries.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a chunker from the configured size and overlap.
func NewChunker(cfg *config.Config) *Chunker {
	return &Chunker{
		chunkSize: cfg.ChunkSize,
		overlap:   cfg.ChunkOverlap,
	}
}

// Chunk splits every page of a document into chunks carrying the
// document title and 1-based page number. A page at or under the chunk
// size becomes a single chunk with index 1; an empty page produces no
// chunks. Longer pages are split so that consecutive chunks share
// exactly the configured overlap, which means dropping the first
// overlap characters of every chunk after the first reconstructs the
// page text.
func (c *Chunker) Chunk(title string, pages []PageText) []models.Chunk {
	var chunks []models.Chunk

	for _, page := range pages {
		text := page.Text
		if strings.TrimSpace(text) == "" {
			continue
		}

		for idx, content := range c.splitPage(text) {
			chunks = append(chunks, models.Chunk{
				ChunkID:    uuid.NewString(),
				Title:      title,
				Page:       page.Page,
				ChunkIndex: idx + 1,
				Content:    content,
			})
		}
	}

	return chunks
}

// splitPage cuts text into pieces of at most chunkSize characters.
// Each cut prefers a paragraph, sentence or word boundary near the end
// of the window; the next piece starts exactly overlap characters
// before the previous cut.
func (c *Chunker) splitPage(text string) []string {
	runes := []rune(text)
	if len(runes) <= c.chunkSize {
		return []string{text}
	}

	var pieces []string
	start := 0

	for start < len(runes) {
		end := start + c.chunkSize
		if end >= len(runes) {
			pieces = append(pieces, string(runes[start:]))
			break
		}

		cut := c.findBoundary(runes, start, end)
		pieces = append(pieces, string(runes[start:cut]))

		if cut >= len(runes) {
			break
		}
		start = cut - c.overlap
	}

	return pieces
}

// findBoundary looks backwards from end for a natural break point,
// scanning at most a quarter of the window so a boundary-free wall of
// text still cuts at the size limit. The cut never moves so far back
// that the next start would not advance past the current one.
func (c *Chunker) findBoundary(runes []rune, start, end int) int {
	limit := end - c.chunkSize/4
	floor := start + c.overlap + 1
	if limit < floor {
		limit = floor
	}

	separators := []string{"\n\n", "\n", ". ", " "}
	window := string(runes[limit:end])

	best := -1
	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i >= 0 {
			best = len([]rune(window[:i])) + len([]rune(sep))
			break
		}
	}

	if best < 0 {
		return end
	}
	cut := limit + best
	if cut <= floor-1 {
		return end
	}
	return cut
}
