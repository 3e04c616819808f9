package response

import (
	"testing"

	"tara-tutor-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantText    string
		wantOptions []store.QuizOption
	}{
		{
			name:        "single block",
			input:       "Question? [OPTIONS] A) foo B) bar [/OPTIONS]",
			wantText:    "Question?",
			wantOptions: []store.QuizOption{{Letter: "A", Text: "foo"}, {Letter: "B", Text: "bar"}},
		},
		{
			name:        "last block wins and all are stripped",
			input:       "First [OPTIONS] A) old [/OPTIONS]\nSecond? [OPTIONS] A) new B) newer [/OPTIONS]",
			wantText:    "First \nSecond?",
			wantOptions: []store.QuizOption{{Letter: "A", Text: "new"}, {Letter: "B", Text: "newer"}},
		},
		{
			name:        "no block",
			input:       "  What do you think a pivot is?  ",
			wantText:    "What do you think a pivot is?",
			wantOptions: nil,
		},
		{
			name:        "unterminated block left alone",
			input:       "Pick one [OPTIONS] A) x",
			wantText:    "Pick one [OPTIONS] A) x",
			wantOptions: nil,
		},
		{
			name:     "option text with parentheses and newlines",
			input:    "Which is O(n log n)?\n[options]\nA) merge sort (top-down)\nB) bubble sort\nC) insertion sort\nD) selection sort\n[/options]",
			wantText: "Which is O(n log n)?",
			wantOptions: []store.QuizOption{
				{Letter: "A", Text: "merge sort (top-down)"},
				{Letter: "B", Text: "bubble sort"},
				{Letter: "C", Text: "insertion sort"},
				{Letter: "D", Text: "selection sort"},
			},
		},
		{
			name:        "letters outside A-D are not markers",
			input:       "Q [OPTIONS] A) yes E) maybe [/OPTIONS]",
			wantText:    "Q",
			wantOptions: []store.QuizOption{{Letter: "A", Text: "yes E) maybe"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, options := ParseOptions(tt.input)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantOptions, options)
		})
	}
}

func TestSelectionText(t *testing.T) {
	assert.Equal(t, "B) bar", SelectionText(store.QuizOption{Letter: "B", Text: "bar"}))
}

func TestSplitFollowUps(t *testing.T) {
	in := "1. Have you ever looked up a word in a dictionary?\n\n2) Why must the list be sorted?\n- extra"
	got := SplitFollowUps(in)
	assert.Equal(t, []string{
		"Have you ever looked up a word in a dictionary?",
		"Why must the list be sorted?",
		"extra",
	}, got)
}
