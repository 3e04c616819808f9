package tutor

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"tara-tutor-be/pkg/llm"
	"tara-tutor-be/pkg/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ReplyStream delivers one turn incrementally. The session stays locked until Close, and the
// turn pair is committed only when the generator reports a clean end of stream.
type ReplyStream struct {
	ctx     context.Context
	engine  *Engine
	session *store.Session
	plan    *turnPlan
	text    string
	reader  llm.StreamReader
	span    trace.Span

	buf   strings.Builder
	reply *Reply
	err   error

	closeOnce sync.Once
}

// RespondStream opens a streaming turn. Callers must Close the stream.
func (e *Engine) RespondStream(ctx context.Context, sessionID, text string) (*ReplyStream, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	ctx, span := e.tracer.Start(ctx, "tutor.respond_stream", trace.WithAttributes(attribute.String("session_id", sessionID)))

	session := e.acquire(sessionID)

	fail := func(err error) (*ReplyStream, error) {
		session.Unlock()
		span.RecordError(err)
		span.End()
		return nil, err
	}

	plan, err := e.prepare(ctx, session, text)
	if err != nil {
		return fail(err)
	}

	var reader llm.StreamReader
	if plan.messages != nil {
		reader, err = e.generator.Stream(ctx, plan.messages)
		if err != nil {
			return fail(newGeneratorError(err))
		}
	} else {
		reader = &fixedReader{text: plan.fixed}
	}

	return &ReplyStream{
		ctx:     ctx,
		engine:  e,
		session: session,
		plan:    plan,
		text:    text,
		reader:  reader,
		span:    span,
	}, nil
}

// Recv returns the next text increment, io.EOF once the turn is committed, or a
// *GeneratorError if generation broke off or ctx was canceled. After an error the turn is
// not recorded.
func (s *ReplyStream) Recv() (string, error) {
	if s.reply != nil {
		return "", io.EOF
	}
	if s.err != nil {
		return "", s.err
	}
	if err := s.ctx.Err(); err != nil {
		s.err = newGeneratorError(err)
		return "", s.err
	}

	chunk, err := s.reader.Recv()
	if errors.Is(err, io.EOF) {
		s.reply = s.engine.commit(s.session, s.plan, s.text, s.buf.String())
		return "", io.EOF
	}
	if err != nil {
		s.err = newGeneratorError(err)
		s.span.RecordError(err)
		return "", s.err
	}
	s.buf.WriteString(chunk)
	return chunk, nil
}

// Reply is the committed outcome, available after Recv returned io.EOF.
func (s *ReplyStream) Reply() *Reply {
	return s.reply
}

// Close releases the generator and the session. Closing before io.EOF abandons the turn.
func (s *ReplyStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.reader.Close()
		s.session.Unlock()
		if s.reply == nil {
			s.engine.logger.Info("Tutor", "Stream closed before completion, turn discarded", map[string]interface{}{
				"session_id": s.session.ID,
				"received":   s.buf.Len(),
			})
		}
		s.span.End()
	})
	return err
}

// fixedReader streams a reply that was decided without generation as a single increment.
type fixedReader struct {
	text string
	sent bool
}

func (f *fixedReader) Recv() (string, error) {
	if f.sent || f.text == "" {
		return "", io.EOF
	}
	f.sent = true
	return f.text, nil
}

func (f *fixedReader) Close() error { return nil }
