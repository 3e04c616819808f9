package llm

import "context"

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

func SystemMessage(content string) Message    { return Message{Role: "system", Content: content} }
func UserMessage(content string) Message      { return Message{Role: "user", Content: content} }
func AssistantMessage(content string) Message { return Message{Role: "assistant", Content: content} }

// Option overrides per-call generation parameters.
type Option func(*Options)

type Options struct {
	Temperature float64
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

// ApplyOptions resolves opts over the provider default temperature.
func ApplyOptions(defaultTemp float64, opts ...Option) *Options {
	options := &Options{Temperature: defaultTemp}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// StreamReader yields text increments in arrival order. Recv returns io.EOF after the last
// increment. Close releases the underlying connection and may be called at any point.
type StreamReader interface {
	Recv() (string, error)
	Close() error
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Stream is Chat with incremental delivery
	Stream(ctx context.Context, history []Message, options ...Option) (StreamReader, error)
}
