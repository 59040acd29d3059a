package services

import (
	"context"
	"time"

	"eduvisor-backend/internal/ai"
	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/internal/config"
	"eduvisor-backend/internal/telemetry"
	"eduvisor-backend/models"
)

// Retriever embeds a query and returns the nearest chunks from the
// course's index, most relevant first.
type Retriever struct {
	vectorstore *VectorstoreService
	embedder    ai.Embedder
	metrics     *telemetry.Metrics
	k           int
}

// NewRetriever creates a retriever over the persistence adapter and the
// configured embedding model.
func NewRetriever(vs *VectorstoreService, embedder ai.Embedder, metrics *telemetry.Metrics, cfg *config.Config) *Retriever {
	return &Retriever{
		vectorstore: vs,
		embedder:    embedder,
		metrics:     metrics,
		k:           cfg.RetrievalK,
	}
}

// Retrieve returns up to k chunks ranked by ascending distance to the
// query. A course with no snapshot, or an empty index, yields an empty
// slice rather than an error so the caller can answer "no relevant
// context" instead of failing the request.
func (r *Retriever) Retrieve(ctx context.Context, query, courseID string) ([]models.RetrievedChunk, error) {
	start := time.Now()

	index, err := r.vectorstore.Load(ctx, courseID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if index.IsEmpty() {
		return nil, nil
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(vector) != index.Dimension() {
		return nil, apperr.New(apperr.KindConfiguration,
			"query embedding dimension does not match the course index")
	}

	hits, err := index.Search(vector, r.k)
	if err != nil {
		return nil, err
	}

	results := make([]models.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		results = append(results, models.RetrievedChunk{
			Content: hit.Chunk.Content,
			Title:   hit.Chunk.Title,
			Page:    hit.Chunk.Page,
			Score:   hit.Distance,
		})
	}

	if r.metrics != nil {
		r.metrics.RecordRetrieval(time.Since(start).Seconds(), courseID)
	}
	return results, nil
}
