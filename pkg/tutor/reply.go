package tutor

import (
	"tara-tutor-be/pkg/rag/state"
	"tara-tutor-be/pkg/store"
)

// Source is a retrieved fragment reference shown alongside a grounded reply.
type Source struct {
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// Reply is the outcome of one learner turn.
type Reply struct {
	Text       string             // display text, option blocks removed
	Options    []store.QuizOption // choices from the last option block
	Raw        string             // generated text as stored in the transcript
	Stage      state.Stage        // stage after the turn
	Reflection bool               // concept-question track still pending
	Strategy   state.Strategy
	Sources    []Source
	Notice     string // set when retrieval was skipped because of an error
}

// AttachResult summarizes an ingested upload.
type AttachResult struct {
	FileName     string
	MaterialType string
	Fragments    int
	Replaced     string // source of the index that was replaced, if any
}

func sourcesOf(fragments []store.Fragment) []Source {
	if len(fragments) == 0 {
		return nil
	}
	out := make([]Source, len(fragments))
	for i, f := range fragments {
		out[i] = Source{Source: f.Source, ChunkIndex: f.ChunkIndex, Score: f.Score}
	}
	return out
}
