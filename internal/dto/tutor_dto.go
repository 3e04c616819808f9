package dto

import (
	"time"
)

type SendChatRequest struct {
	SessionId string `json:"session_id" validate:"omitempty,max=128"`
	Chat      string `json:"chat" validate:"required_without=Option,max=8000"`
	Option    string `json:"option,omitempty" validate:"omitempty,len=1,oneof=A B C D a b c d"` // answers the last quiz
}

type QuizOptionDTO struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

type SourceDTO struct {
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

type SendChatResponse struct {
	SessionId  string          `json:"session_id"`
	Sent       string          `json:"sent"`
	Reply      string          `json:"reply"`
	Options    []QuizOptionDTO `json:"options,omitempty"`
	Stage      string          `json:"stage"`
	Reflection bool            `json:"reflection"`
	Strategy   string          `json:"strategy,omitempty"`
	Sources    []SourceDTO     `json:"sources,omitempty"`
	Notice     string          `json:"notice,omitempty"`
	Failed     bool            `json:"failed,omitempty"` // the turn was not recorded
}

// StreamDelta is one "delta" server-sent event.
type StreamDelta struct {
	Text string `json:"text"`
}

type UploadDocumentResponse struct {
	SessionId    string `json:"session_id"`
	FileName     string `json:"file_name"`
	MaterialType string `json:"material_type"`
	Fragments    int    `json:"fragments"`
	Replaced     string `json:"replaced,omitempty"`
	Message      string `json:"message"`
}

type DetachDocumentResponse struct {
	SessionId string `json:"session_id"`
	Detached  bool   `json:"detached"`
}

type ResetSessionRequest struct {
	SessionId string `json:"session_id" validate:"omitempty,max=128"`
}

type TurnDTO struct {
	Id        string          `json:"id"`
	Role      string          `json:"role"`
	Chat      string          `json:"chat"`
	Options   []QuizOptionDTO `json:"options,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type SessionHistoryResponse struct {
	SessionId  string    `json:"session_id"`
	Stage      string    `json:"stage"`
	Reflection bool      `json:"reflection"`
	Document   string    `json:"document,omitempty"`
	Turns      []TurnDTO `json:"turns"`
}

type FeedbackRequest struct {
	SessionId string `json:"session_id" validate:"omitempty,max=128"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"max=2000"`
}

// FeedbackMessage is the queued form of a feedback submission.
type FeedbackMessage struct {
	SessionId    string    `json:"session_id"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	LastQuestion string    `json:"last_question"`
	LastAnswer   string    `json:"last_answer"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// WsInbound is a client frame on the tutor socket.
type WsInbound struct {
	Chat   string `json:"chat"`
	Option string `json:"option,omitempty"`
}

// WsOutbound is a server frame; Type is "delta", "done", "turn_completed" or "error".
type WsOutbound struct {
	Type      string            `json:"type"`
	SessionId string            `json:"session_id"`
	Text      string            `json:"text,omitempty"`
	Reply     *SendChatResponse `json:"reply,omitempty"`
}
