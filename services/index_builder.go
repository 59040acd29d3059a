package services

import (
	"context"
	"fmt"
	"path"
	"strings"

	"eduvisor-backend/internal/ai"
	"eduvisor-backend/internal/blob"
	"eduvisor-backend/internal/logger"
	"eduvisor-backend/internal/telemetry"
	"eduvisor-backend/internal/vectorindex"
	"eduvisor-backend/models"
)

// IndexBuilder rebuilds a course's vector index from every PDF stored
// under the course's material prefix.
type IndexBuilder struct {
	store       blob.Store
	extractor   *PDFExtractor
	chunker     *Chunker
	embedder    ai.Embedder
	vectorstore *VectorstoreService
	metrics     *telemetry.Metrics
}

func NewIndexBuilder(store blob.Store, extractor *PDFExtractor, chunker *Chunker, embedder ai.Embedder, vectorstore *VectorstoreService, metrics *telemetry.Metrics) *IndexBuilder {
	return &IndexBuilder{
		store:       store,
		extractor:   extractor,
		chunker:     chunker,
		embedder:    embedder,
		vectorstore: vectorstore,
		metrics:     metrics,
	}
}

// MaterialKey returns the blob key for a course material.
func MaterialKey(courseID, filename string) string {
	return fmt.Sprintf("pdfs/%s/%s", courseID, filename)
}

// MaterialPrefix returns the blob prefix holding all of a course's PDFs.
func MaterialPrefix(courseID string) string {
	return fmt.Sprintf("pdfs/%s/", courseID)
}

// Rebuild extracts, chunks and embeds every material for the course and
// replaces the persisted snapshot with the result. A course with no
// materials gets an empty snapshot, which is a valid state.
func (b *IndexBuilder) Rebuild(ctx context.Context, courseID string) error {
	keys, err := b.store.List(ctx, MaterialPrefix(courseID))
	if err != nil {
		b.recordBuild(courseID, false)
		return err
	}

	var chunks []models.Chunk
	for _, key := range keys {
		if !strings.HasSuffix(key, ".pdf") {
			continue
		}

		content, err := b.store.Get(ctx, key)
		if err != nil {
			b.recordBuild(courseID, false)
			return err
		}

		pages, err := b.extractor.ExtractPages(ctx, content)
		if err != nil {
			logger.Warn("skipping unreadable material", "key", key, "error", err)
			continue
		}

		title := strings.TrimSuffix(path.Base(key), ".pdf")
		chunks = append(chunks, b.chunker.Chunk(title, pages)...)
	}

	index, err := vectorindex.New(b.embedder.Dimension())
	if err != nil {
		b.recordBuild(courseID, false)
		return err
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Content
		}

		vectors, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			b.recordBuild(courseID, false)
			return err
		}

		if err := index.AddBatch(chunks, vectors); err != nil {
			b.recordBuild(courseID, false)
			return err
		}
	}

	if err := b.vectorstore.Save(ctx, courseID, index); err != nil {
		b.recordBuild(courseID, false)
		return err
	}

	b.recordBuild(courseID, true)
	logger.Info("rebuilt course index", "course_id", courseID, "materials", len(keys), "chunks", len(chunks))
	return nil
}

func (b *IndexBuilder) recordBuild(courseID string, success bool) {
	if b.metrics != nil {
		b.metrics.RecordIndexBuild(courseID, success)
	}
}
