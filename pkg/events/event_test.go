package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_CopiesDataAndAddsSession(t *testing.T) {
	data := map[string]interface{}{"stage": "planning"}
	ev := New(TypeTurnCompleted, "s1", data)

	assert.Equal(t, TypeTurnCompleted, ev.EventType())
	assert.Equal(t, "s1", ev.Payload()["session_id"])
	assert.Equal(t, "planning", ev.Payload()["stage"])
	assert.NotContains(t, data, "session_id")
	assert.False(t, ev.Timestamp().IsZero())
}
