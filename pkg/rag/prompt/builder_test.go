package prompt

import (
	"testing"

	"tara-tutor-be/internal/constant"
	"tara-tutor-be/pkg/llm"
	"tara-tutor-be/pkg/rag/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionBuilder(t *testing.T) {
	t.Run("no material", func(t *testing.T) {
		got, err := NewInstructionBuilder(state.StrategySocratic).Build()
		require.NoError(t, err)
		assert.Contains(t, got, constant.SocraticSystemPrompt)
		assert.NotContains(t, got, "<course_material>")
		assert.Contains(t, got, "[OPTIONS]")
	})

	t.Run("with material", func(t *testing.T) {
		got, err := NewInstructionBuilder(state.StrategyRequestPlan).
			WithCourseMaterial("Quicksort picks a pivot.").
			Build()
		require.NoError(t, err)
		assert.Contains(t, got, constant.RequestPlanPrompt)
		assert.Contains(t, got, "<course_material>\n")
		assert.Contains(t, got, "Quicksort picks a pivot.")
		assert.Contains(t, got, "[OPTIONS]")
	})

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := NewInstructionBuilder(state.Strategy("nope")).Build()
		assert.Error(t, err)
	})
}

func TestMessages(t *testing.T) {
	msgs := Messages("sys", []llm.Message{llm.UserMessage("a"), llm.AssistantMessage("b")}, "c")
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "c", msgs[3].Content)
}

func TestReflectionPrompt(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"What is binary search?", constant.ReflectionSearchPrompt},
		{"How does merge sort work?", constant.ReflectionSortPrompt},
		{"What is a heap?", "Before we explore this topic, could you share what you already know about a heap?"},
		{"what is?", "Before we explore this topic, could you share what you already know about this topic?"},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, ReflectionPrompt(tt.topic))
		})
	}
}
