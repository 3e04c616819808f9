package index

import (
	"context"
	"fmt"

	"tara-tutor-be/pkg/embedding"
	"tara-tutor-be/pkg/store"

	"golang.org/x/sync/errgroup"
)

// Index is a similarity-search handle over one uploaded file.
type Index interface {
	store.DocumentIndex
	// Search returns up to k fragments ordered by similarity, best first.
	Search(ctx context.Context, query string, k int) ([]store.Fragment, error)
	// Close releases backend resources (rows, memory). The index is unusable afterwards.
	Close(ctx context.Context) error
}

// Builder embeds fragments and produces a searchable Index.
type Builder interface {
	Build(ctx context.Context, sessionID, source string, fragments []store.Fragment) (Index, error)
}

// DefaultEmbedConcurrency bounds parallel embedding calls during a build.
const DefaultEmbedConcurrency = 4

// EmbedAll embeds every fragment with at most limit calls in flight. Results are index-aligned.
func EmbedAll(ctx context.Context, embedder embedding.EmbeddingProvider, fragments []store.Fragment, limit int) ([][]float32, error) {
	if limit <= 0 {
		limit = DefaultEmbedConcurrency
	}
	vectors := make([][]float32, len(fragments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range fragments {
		i := i
		g.Go(func() error {
			vec, err := embedder.Embed(gctx, fragments[i].Content, embedding.TaskRetrievalDocument)
			if err != nil {
				return fmt.Errorf("embed fragment %d of %s: %w", fragments[i].ChunkIndex, fragments[i].Source, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
