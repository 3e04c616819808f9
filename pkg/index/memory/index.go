package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"tara-tutor-be/pkg/embedding"
	"tara-tutor-be/pkg/index"
	"tara-tutor-be/pkg/store"
)

var ErrClosed = errors.New("index closed")

type entry struct {
	fragment store.Fragment
	vector   []float32
}

// Index keeps fragments and their unit vectors in process memory; search is a cosine scan.
type Index struct {
	source   string
	embedder embedding.EmbeddingProvider

	mu      sync.RWMutex
	entries []entry
	closed  bool
}

func (i *Index) Source() string { return i.source }

func (i *Index) Size() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

func (i *Index) Search(ctx context.Context, query string, k int) ([]store.Fragment, error) {
	i.mu.RLock()
	closed := i.closed
	i.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	qv, err := i.embedder.Embed(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	scored := make([]store.Fragment, 0, len(i.entries))
	for _, e := range i.entries {
		f := e.fragment
		f.Score = dot(qv, e.vector)
		scored = append(scored, f)
	}
	// stable on ties so equal scores keep document order
	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Score > scored[b].Score })

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (i *Index) Close(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	i.entries = nil
	return nil
}

// dot equals cosine similarity for unit vectors.
func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float32
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}

type Builder struct {
	embedder    embedding.EmbeddingProvider
	concurrency int
}

var _ index.Builder = (*Builder)(nil)

func NewBuilder(embedder embedding.EmbeddingProvider, concurrency int) *Builder {
	return &Builder{embedder: embedder, concurrency: concurrency}
}

func (b *Builder) Build(ctx context.Context, sessionID, source string, fragments []store.Fragment) (index.Index, error) {
	vectors, err := index.EmbedAll(ctx, b.embedder, fragments, b.concurrency)
	if err != nil {
		return nil, err
	}
	entries := make([]entry, len(fragments))
	for n := range fragments {
		entries[n] = entry{fragment: fragments[n], vector: vectors[n]}
	}
	return &Index{source: source, embedder: b.embedder, entries: entries}, nil
}
