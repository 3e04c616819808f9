package pgvector

import (
	"context"
	"fmt"

	"tara-tutor-be/internal/pkg/logger"
	"tara-tutor-be/pkg/embedding"
	"tara-tutor-be/pkg/index"
	"tara-tutor-be/pkg/store"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// Migrate enables the vector extension and creates the fragment table.
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}
	return db.AutoMigrate(&DocumentFragment{})
}

type Builder struct {
	db          *gorm.DB
	embedder    embedding.EmbeddingProvider
	concurrency int
	logger      logger.ILogger
}

var _ index.Builder = (*Builder)(nil)

func NewBuilder(db *gorm.DB, embedder embedding.EmbeddingProvider, concurrency int, log logger.ILogger) *Builder {
	return &Builder{db: db, embedder: embedder, concurrency: concurrency, logger: log}
}

// Build stores the file's fragments under a fresh index id. Rows from earlier uploads in the
// same session are removed in the same transaction.
func (b *Builder) Build(ctx context.Context, sessionID, source string, fragments []store.Fragment) (index.Index, error) {
	vectors, err := index.EmbedAll(ctx, b.embedder, fragments, b.concurrency)
	if err != nil {
		return nil, err
	}

	indexID := uuid.New()
	rows := make([]DocumentFragment, len(fragments))
	for i, f := range fragments {
		id, err := uuid.Parse(f.ID)
		if err != nil {
			id = uuid.New()
		}
		rows[i] = DocumentFragment{
			ID:         id,
			IndexID:    indexID,
			SessionID:  sessionID,
			Source:     f.Source,
			ChunkIndex: f.ChunkIndex,
			Content:    f.Content,
			Metadata:   f.Metadata,
			Embedding:  pgvector.NewVector(vectors[i]),
		}
	}

	err = b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&DocumentFragment{}).Error; err != nil {
			return err
		}
		return tx.CreateInBatches(rows, 100).Error
	})
	if err != nil {
		return nil, fmt.Errorf("store fragments: %w", err)
	}

	b.logger.Info("Index", "Fragments stored", map[string]interface{}{
		"session_id": sessionID,
		"index_id":   indexID.String(),
		"source":     source,
		"count":      len(rows),
	})

	return &Index{
		db:       b.db,
		embedder: b.embedder,
		id:       indexID,
		source:   source,
		size:     len(rows),
	}, nil
}

type Index struct {
	db       *gorm.DB
	embedder embedding.EmbeddingProvider
	id       uuid.UUID
	source   string
	size     int
}

func (i *Index) Source() string { return i.source }
func (i *Index) Size() int      { return i.size }

type scoredFragment struct {
	DocumentFragment
	Distance float64
}

func (i *Index) Search(ctx context.Context, query string, k int) ([]store.Fragment, error) {
	qv, err := i.embedder.Embed(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if k <= 0 {
		k = 4
	}

	vec := pgvector.NewVector(qv)
	var rows []scoredFragment
	err = i.db.WithContext(ctx).
		Model(&DocumentFragment{}).
		Select("*, embedding <=> ? AS distance", vec).
		Where("index_id = ?", i.id).
		Order(gorm.Expr("embedding <=> ?", vec)).
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}

	out := make([]store.Fragment, len(rows))
	for n, r := range rows {
		out[n] = store.Fragment{
			ID:         r.ID.String(),
			Source:     r.Source,
			ChunkIndex: r.ChunkIndex,
			Content:    r.Content,
			Metadata:   r.Metadata,
			// cosine distance -> similarity
			Score: float32(1 - r.Distance),
		}
	}
	return out, nil
}

func (i *Index) Close(ctx context.Context) error {
	return i.db.WithContext(ctx).Where("index_id = ?", i.id).Delete(&DocumentFragment{}).Error
}
