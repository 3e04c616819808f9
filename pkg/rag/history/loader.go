package history

import (
	"strings"

	"tara-tutor-be/pkg/llm"
	"tara-tutor-be/pkg/store"
)

// ToMessages converts transcript turns to generator messages, oldest first.
func ToMessages(turns []store.Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == store.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}
	return messages
}

// Recent loads the last n turns of a session as messages.
func Recent(session *store.Session, n int) []llm.Message {
	return ToMessages(session.RecentTurns(n))
}

// Transcript renders turns as "role: content" lines for prompts that take history as text.
func Transcript(turns []store.Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
	}
	return b.String()
}
