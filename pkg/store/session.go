package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionID is used when the host does not assign a session identifier.
const DefaultSessionID = "default"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// QuizOption is a single lettered choice parsed from an [OPTIONS] block.
type QuizOption struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Turn is one transcript entry. Content keeps the raw generated text (options block included)
// so the model sees the choices it offered on later turns.
type Turn struct {
	ID        string       `json:"id"`
	Role      Role         `json:"role"`
	Content   string       `json:"content"`
	Options   []QuizOption `json:"options,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Fragment is a retrieval unit produced by ingestion
type Fragment struct {
	ID         string                 `json:"id"`
	Source     string                 `json:"source"`
	ChunkIndex int                    `json:"chunk_index"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata"`
	Score      float32                `json:"score"`
}

// DocumentIndex is the similarity-search handle attached to a session.
// Implemented by pkg/index backends.
type DocumentIndex interface {
	Source() string
	Size() int
}

// Session represents the in-memory tutoring state for one session identifier
type Session struct {
	ID         string `json:"id"`
	Stage      string `json:"stage"`      // see pkg/rag/state
	Reflection bool   `json:"reflection"` // concept-question track awaiting the learner's reflection
	Topic      string `json:"topic"`      // question that opened the reflection track

	Transcript []Turn `json:"transcript"`

	// THE WORKBENCH (uploaded course material)
	Index DocumentIndex `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	mu      sync.Mutex
	retired bool
}

// NewSession creates an empty session in the given initial stage
func NewSession(id, initialStage string) *Session {
	if id == "" {
		id = DefaultSessionID
	}
	now := time.Now()
	return &Session{
		ID:        id,
		Stage:     initialStage,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Lock serializes turns on a single session.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Retire marks the session as dropped from its store. A retired session never takes another
// turn. Callers hold the lock.
func (s *Session) Retire() { s.retired = true }

// Retired reports whether Retire was called. Callers hold the lock.
func (s *Session) Retired() bool { return s.retired }

// NewTurn builds a turn with a fresh id.
func NewTurn(role Role, content string, options []QuizOption) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Options:   options,
		CreatedAt: time.Now(),
	}
}

// Append commits a user/assistant pair. Both turns go in together or not at all.
func (s *Session) Append(user, assistant Turn) {
	s.Transcript = append(s.Transcript, user, assistant)
	s.UpdatedAt = time.Now()
}

// RecentTurns returns a copy of the last n turns (all turns when n <= 0).
func (s *Session) RecentTurns(n int) []Turn {
	start := 0
	if n > 0 && len(s.Transcript) > n {
		start = len(s.Transcript) - n
	}
	out := make([]Turn, len(s.Transcript)-start)
	copy(out, s.Transcript[start:])
	return out
}

// Snapshot returns a copy of the full transcript
func (s *Session) Snapshot() []Turn {
	return s.RecentTurns(0)
}

// Reset clears the transcript, stage and reflection state and detaches the index, which
// is returned so the caller can close it. Callers hold the lock.
func (s *Session) Reset(initialStage string) DocumentIndex {
	idx := s.Index
	s.Index = nil
	s.Stage = initialStage
	s.Reflection = false
	s.Topic = ""
	s.Transcript = nil
	s.UpdatedAt = time.Now()
	return idx
}
