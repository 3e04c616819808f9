package pgvector

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// DocumentFragment is one embedded chunk of an uploaded file.
type DocumentFragment struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey"`
	IndexID    uuid.UUID         `gorm:"type:uuid;index"`
	SessionID  string            `gorm:"index"`
	Source     string            `gorm:"not null"`
	ChunkIndex int               `gorm:"not null"`
	Content    string            `gorm:"type:text;not null"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	Embedding  pgvector.Vector   `gorm:"type:vector"`
	CreatedAt  time.Time
}

func (DocumentFragment) TableName() string {
	return "document_fragments"
}
