package response

import (
	"context"
	"fmt"
	"time"

	"tara-tutor-be/internal/pkg/logger"
	"tara-tutor-be/pkg/llm"
	"tara-tutor-be/pkg/rag/prompt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Generator wraps the LLM provider with a per-call deadline and tracing.
type Generator struct {
	llmProvider llm.LLMProvider
	timeout     time.Duration
	logger      logger.ILogger
	tracer      trace.Tracer
}

func NewGenerator(llmProvider llm.LLMProvider, timeout time.Duration, log logger.ILogger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		timeout:     timeout,
		logger:      log,
		tracer:      otel.Tracer("tara/generator"),
	}
}

func (g *Generator) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

// Generate returns the complete reply for messages.
func (g *Generator) Generate(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	ctx, span := g.tracer.Start(ctx, "generator.chat", trace.WithAttributes(attribute.Int("messages", len(messages))))
	defer span.End()

	ctx, cancel := g.withDeadline(ctx)
	defer cancel()

	start := time.Now()
	out, err := g.llmProvider.Chat(ctx, messages, opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat failed")
		g.logger.Error("Generator", "Chat failed", map[string]interface{}{
			"error":      err.Error(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
		return "", err
	}
	g.logger.Debug("Generator", "Chat done", map[string]interface{}{
		"elapsed_ms": time.Since(start).Milliseconds(),
		"length":     len(out),
	})
	return out, nil
}

// Stream opens an incremental reply. The deadline covers the whole stream and is released on Close.
func (g *Generator) Stream(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.StreamReader, error) {
	ctx, span := g.tracer.Start(ctx, "generator.stream", trace.WithAttributes(attribute.Int("messages", len(messages))))
	ctx, cancel := g.withDeadline(ctx)

	reader, err := g.llmProvider.Stream(ctx, messages, opts...)
	if err != nil {
		cancel()
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream failed")
		span.End()
		g.logger.Error("Generator", "Stream failed to open", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	return &deadlineStream{StreamReader: reader, cancel: cancel, span: span}, nil
}

type deadlineStream struct {
	llm.StreamReader
	cancel context.CancelFunc
	span   trace.Span
	closed bool
}

func (s *deadlineStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.StreamReader.Close()
	s.cancel()
	s.span.End()
	return err
}

// FollowUps asks for two follow-up questions about the learner's reflection on topic.
func (g *Generator) FollowUps(ctx context.Context, topic, reflection string) ([]string, error) {
	messages := []llm.Message{
		llm.SystemMessage(prompt.FollowUpRequest(topic)),
		llm.UserMessage(reflection),
	}
	out, err := g.Generate(ctx, messages)
	if err != nil {
		return nil, err
	}
	questions := SplitFollowUps(out)
	if len(questions) == 0 {
		return nil, fmt.Errorf("no follow-up questions in reply")
	}
	if len(questions) > 2 {
		questions = questions[:2]
	}
	return questions, nil
}
