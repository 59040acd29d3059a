package ai

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/internal/config"
)

// Embedder turns text into fixed-dimension vectors. The same embedder (model
// and dimension) must be used for index builds and query-time embedding
// within a course, otherwise search results are garbage.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// NewEmbedder builds the embedder selected by configuration.
func NewEmbedder(cfg *config.Config) (Embedder, error) {
	switch cfg.EmbeddingsProvider {
	case "openai":
		client := openai.NewClient(cfg.OpenAIAPIKey)
		return &openAIEmbedder{
			client:     client,
			model:      cfg.OpenAIEmbeddingsModel,
			dimension:  cfg.VectorDimensions,
			maxRetries: cfg.AIMaxRetries,
		}, nil
	case "google":
		client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			return nil, apperr.Wrap(apperr.KindConfiguration, "create genai client", err)
		}
		return &googleEmbedder{
			client:     client,
			model:      cfg.GoogleEmbeddingsModel,
			dimension:  cfg.VectorDimensions,
			maxRetries: cfg.AIMaxRetries,
		}, nil
	default:
		return nil, apperr.New(apperr.KindConfiguration,
			fmt.Sprintf("unknown embeddings provider: %s", cfg.EmbeddingsProvider))
	}
}

// retryEmbedding runs op with bounded exponential backoff. Embedding
// failures are transient more often than not (rate limits, timeouts), so a
// small retry budget smooths over them; exhausting it surfaces as a terminal
// EmbeddingError for this request only.
func retryEmbedding(ctx context.Context, maxRetries int, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxRetries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return apperr.Wrap(apperr.KindEmbedding, "embedding service failed", err)
	}
	return nil
}

type openAIEmbedder struct {
	client     *openai.Client
	model      string
	dimension  int
	maxRetries int
}

func (e *openAIEmbedder) Dimension() int { return e.dimension }

func (e *openAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *openAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var results [][]float32
	err := retryEmbedding(ctx, e.maxRetries, func() error {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.model),
			Input: texts,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("asked for %d embeddings, got %d", len(texts), len(resp.Data))
		}
		results = make([][]float32, len(resp.Data))
		for i, datum := range resp.Data {
			results[i] = datum.Embedding
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := checkDimensions(results, e.dimension); err != nil {
		return nil, err
	}
	return results, nil
}

type googleEmbedder struct {
	client     *genai.Client
	model      string
	dimension  int
	maxRetries int
}

func (e *googleEmbedder) Dimension() int { return e.dimension }

func (e *googleEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *googleEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var results [][]float32
	err := retryEmbedding(ctx, e.maxRetries, func() error {
		em := e.client.EmbeddingModel(e.model)
		batch := em.NewBatch()
		for _, t := range texts {
			batch.AddContent(genai.Text(t))
		}
		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return err
		}
		if len(resp.Embeddings) != len(texts) {
			return fmt.Errorf("asked for %d embeddings, got %d", len(texts), len(resp.Embeddings))
		}
		results = make([][]float32, len(resp.Embeddings))
		for i, emb := range resp.Embeddings {
			if emb == nil {
				return fmt.Errorf("no embedding returned for input %d", i)
			}
			results[i] = emb.Values
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := checkDimensions(results, e.dimension); err != nil {
		return nil, err
	}
	return results, nil
}

func checkDimensions(vectors [][]float32, want int) error {
	for i, v := range vectors {
		if len(v) != want {
			return apperr.New(apperr.KindConfiguration,
				fmt.Sprintf("embedding %d has dimension %d, configured dimension is %d", i, len(v), want))
		}
	}
	return nil
}
