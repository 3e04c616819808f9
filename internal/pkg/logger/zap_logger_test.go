package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogs_FiltersAndOrders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	lines := `{"level":"INFO","timestamp":"t1","message":"first","module":"Tutor","details":{"session_id":"a"}}
{"level":"ERROR","timestamp":"t2","message":"second","module":"Tutor","details":{"session_id":"b"}}
not json
{"level":"INFO","timestamp":"t3","message":"third","module":"Ingest","details":{"session_id":"a"}}
`
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))

	l := &ZapLogger{logger: NewNopLogger().logger, filePath: path}

	all, err := l.GetLogs(LogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Message)

	bySession, err := l.GetLogs(LogFilter{SessionID: "a"})
	require.NoError(t, err)
	assert.Len(t, bySession, 2)

	byLevel, err := l.GetLogs(LogFilter{Level: "ERROR"})
	require.NoError(t, err)
	require.Len(t, byLevel, 1)
	assert.Equal(t, "second", byLevel[0].Message)

	paged, err := l.GetLogs(LogFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "second", paged[0].Message)

	found, err := l.GetLogById(paged[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "second", found.Message)
}

func TestGetLogs_MissingFile(t *testing.T) {
	l := &ZapLogger{logger: NewNopLogger().logger, filePath: filepath.Join(t.TempDir(), "none.log")}
	logs, err := l.GetLogs(LogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}
