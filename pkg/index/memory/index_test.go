package memory

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"tara-tutor-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var axes = []string{"sort", "search", "tree", "graph"}

// keywordEmbedder places text on one axis per keyword it mentions.
type keywordEmbedder struct {
	calls atomic.Int32
	fail  string
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	e.calls.Add(1)
	if e.fail != "" && strings.Contains(text, e.fail) {
		return nil, errors.New("embedding backend down")
	}
	lower := strings.ToLower(text)
	vec := make([]float32, len(axes))
	var mag float64
	for i, a := range axes {
		vec[i] = float32(strings.Count(lower, a))
		mag += float64(vec[i] * vec[i])
	}
	if mag == 0 {
		return vec, nil
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / math.Sqrt(mag))
	}
	return vec, nil
}

func fragments() []store.Fragment {
	texts := []string{
		"Bubble sort swaps neighbours; merge sort splits and merges.",
		"Binary search needs sorted input.",
		"A binary search tree keeps smaller keys to the left.",
		"Graph traversal visits every node once.",
	}
	out := make([]store.Fragment, len(texts))
	for i, t := range texts {
		out[i] = store.Fragment{ID: t[:5], Source: "notes.txt", ChunkIndex: i, Content: t}
	}
	return out
}

func TestBuilder_BuildAndSearch(t *testing.T) {
	emb := &keywordEmbedder{}
	idx, err := NewBuilder(emb, 2).Build(context.Background(), "s1", "notes.txt", fragments())
	require.NoError(t, err)

	assert.Equal(t, "notes.txt", idx.Source())
	assert.Equal(t, 4, idx.Size())
	assert.Equal(t, int32(4), emb.calls.Load())

	results, err := idx.Search(context.Background(), "how do I traverse a graph", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 3, results[0].ChunkIndex)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestIndex_SearchReturnsAtMostK(t *testing.T) {
	idx, err := NewBuilder(&keywordEmbedder{}, 0).Build(context.Background(), "s1", "notes.txt", fragments())
	require.NoError(t, err)

	all, err := idx.Search(context.Background(), "sort", 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, 0, all[0].ChunkIndex)
}

func TestBuilder_EmbeddingFailure(t *testing.T) {
	_, err := NewBuilder(&keywordEmbedder{fail: "Graph"}, 2).Build(context.Background(), "s1", "notes.txt", fragments())
	assert.Error(t, err)
}

func TestIndex_Close(t *testing.T) {
	idx, err := NewBuilder(&keywordEmbedder{}, 2).Build(context.Background(), "s1", "notes.txt", fragments())
	require.NoError(t, err)

	require.NoError(t, idx.Close(context.Background()))
	assert.Equal(t, 0, idx.Size())

	_, err = idx.Search(context.Background(), "sort", 4)
	assert.ErrorIs(t, err, ErrClosed)
}
