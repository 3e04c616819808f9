package pgvector

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type capturedStatement struct {
	sql  string
	vars []interface{}
}

// dryRunDB renders statements without a server and records every delete.
func dryRunDB(t *testing.T) (*gorm.DB, *[]capturedStatement) {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=tara dbname=tara sslmode=disable",
	}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	var captured []capturedStatement
	err = db.Callback().Delete().After("gorm:delete").Register("test:capture_delete", func(tx *gorm.DB) {
		captured = append(captured, capturedStatement{
			sql:  tx.Statement.SQL.String(),
			vars: append([]interface{}(nil), tx.Statement.Vars...),
		})
	})
	require.NoError(t, err)
	return db, &captured
}

func TestIndex_CloseDeletesOnlyItsOwnRows(t *testing.T) {
	db, captured := dryRunDB(t)

	first := &Index{db: db, id: uuid.New(), source: "a.pdf", size: 3}
	second := &Index{db: db, id: uuid.New(), source: "b.pdf", size: 2}

	require.NoError(t, first.Close(context.Background()))
	require.NoError(t, second.Close(context.Background()))

	require.Len(t, *captured, 2)
	for n, idx := range []*Index{first, second} {
		stmt := (*captured)[n]
		assert.Contains(t, stmt.sql, `DELETE FROM "document_fragments"`)
		assert.Contains(t, stmt.sql, "WHERE index_id = $1")
		assert.NotContains(t, stmt.sql, "session_id")
		assert.Equal(t, []interface{}{idx.id}, stmt.vars)
	}
}

func TestIndex_Accessors(t *testing.T) {
	idx := &Index{id: uuid.New(), source: "notes.md", size: 7}
	assert.Equal(t, "notes.md", idx.Source())
	assert.Equal(t, 7, idx.Size())
}
