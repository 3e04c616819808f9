package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tara-tutor-be/internal/constant"
	"tara-tutor-be/internal/pkg/logger"
	"tara-tutor-be/pkg/index"
	"tara-tutor-be/pkg/llm"
	"tara-tutor-be/pkg/rag/history"
	"tara-tutor-be/pkg/store"
)

// ErrRetrieval marks an index that could not be queried.
var ErrRetrieval = errors.New("retrieval failed")

// Rewriter turns a follow-up message into a standalone query.
type Rewriter interface {
	Generate(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error)
}

// Config encapsulates search parameters
type Config struct {
	TopK          int
	HistoryWindow int
}

func DefaultConfig() Config {
	return Config{
		TopK:          constant.RetrievalTopK,
		HistoryWindow: constant.RetrievalHistoryWindow,
	}
}

// Result is what one augmentation produced. Context is empty when nothing was retrieved.
type Result struct {
	Query     string
	Context   string
	Fragments []store.Fragment
}

// Augmenter rewrites the learner's turn and fetches supporting fragments
type Augmenter struct {
	rewriter Rewriter
	config   Config
	logger   logger.ILogger
}

func NewAugmenter(rewriter Rewriter, config Config, log logger.ILogger) *Augmenter {
	return &Augmenter{rewriter: rewriter, config: config, logger: log}
}

// Augment returns empty context when idx is nil. Search failures are wrapped in ErrRetrieval.
func (a *Augmenter) Augment(ctx context.Context, turns []store.Turn, userText string, idx index.Index) (*Result, error) {
	if idx == nil {
		return &Result{Query: userText}, nil
	}

	query := a.rewrite(ctx, turns, userText)

	fragments, err := idx.Search(ctx, query, a.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Content
	}

	a.logger.Debug("Retrieval", "Fragments retrieved", map[string]interface{}{
		"source":    idx.Source(),
		"query":     query,
		"retrieved": len(fragments),
	})

	return &Result{
		Query:     query,
		Context:   strings.Join(texts, "\n"),
		Fragments: fragments,
	}, nil
}

// rewrite resolves references against recent turns; any failure falls back to the raw text.
func (a *Augmenter) rewrite(ctx context.Context, turns []store.Turn, userText string) string {
	if a.rewriter == nil || len(turns) == 0 {
		return userText
	}
	if n := a.config.HistoryWindow; n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}

	messages := []llm.Message{
		llm.SystemMessage(constant.QueryRewritePrompt),
		llm.UserMessage("Conversation:\n" + history.Transcript(turns) + "\n\nFollow-up: " + userText),
	}
	out, err := a.rewriter.Generate(ctx, messages, llm.WithTemperature(0))
	if err != nil {
		a.logger.Warn("Retrieval", "Query rewrite failed, using raw text", map[string]interface{}{"error": err.Error()})
		return userText
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return userText
	}
	return out
}
