package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"tara-tutor-be/internal/config"
	"tara-tutor-be/internal/constant"
	"tara-tutor-be/internal/dto"
	"tara-tutor-be/internal/pkg/logger"
	"tara-tutor-be/internal/repository/memory"
	"tara-tutor-be/pkg/events"
	"tara-tutor-be/pkg/index"
	memindex "tara-tutor-be/pkg/index/memory"
	"tara-tutor-be/pkg/ingest"
	"tara-tutor-be/pkg/llm"
	"tara-tutor-be/pkg/rag/response"
	"tara-tutor-be/pkg/rag/state"
	"tara-tutor-be/pkg/tutor"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if llm.ApplyOptions(1, opts...).Temperature == 0 {
		return "standalone query", nil
	}
	return f.reply, f.err
}

func (f *fakeLLM) Stream(ctx context.Context, history []llm.Message, opts ...llm.Option) (llm.StreamReader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &wordReader{words: strings.SplitAfter(f.reply, " ")}, nil
}

type wordReader struct {
	words []string
	i     int
}

func (r *wordReader) Recv() (string, error) {
	if r.i >= len(r.words) {
		return "", io.EOF
	}
	r.i++
	return r.words[r.i-1], nil
}

func (r *wordReader) Close() error { return nil }

// flatEmbedder puts every text on the same axis so all fragments match.
type flatEmbedder struct{}

func (flatEmbedder) Embed(ctx context.Context, text, taskType string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.EventType()
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	frames []dto.WsOutbound
}

func (n *recordingNotifier) Broadcast(sessionID string, msg dto.WsOutbound) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.frames = append(n.frames, msg)
}

type fixture struct {
	llm       *fakeLLM
	publisher *recordingPublisher
	notifier  *recordingNotifier
	svc       ITutorService
}

func newFixture(reply string) *fixture {
	log := logger.NewNopLogger()
	f := &fixture{
		llm:       &fakeLLM{reply: reply},
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
	}
	engine := tutor.NewEngine(tutor.Deps{
		Sessions:  memory.NewSessionRepository(0, string(state.StageInitial)),
		Parser:    ingest.NewParser(constant.ChunkSize, constant.ChunkOverlap, nil, log),
		Indexer:   memindex.NewBuilder(flatEmbedder{}, index.DefaultEmbedConcurrency),
		Generator: response.NewGenerator(f.llm, time.Second, log),
		Logger:    log,
	})
	f.svc = NewTutorService(engine, f.publisher, f.notifier, log)
	return f
}

func TestTutorService_SendChat(t *testing.T) {
	f := newFixture("What do you already know? [OPTIONS] A) loops B) recursion [/OPTIONS]")

	res, err := f.svc.SendChat(context.Background(), &dto.SendChatRequest{Chat: "I'm stuck on my homework"})
	require.NoError(t, err)

	assert.Equal(t, "default", res.SessionId)
	assert.Equal(t, "What do you already know?", res.Reply)
	require.Len(t, res.Options, 2)
	assert.Equal(t, "B", res.Options[1].Letter)
	assert.False(t, res.Failed)
	assert.Equal(t, []string{events.TypeTurnCompleted}, f.publisher.types())
	require.Len(t, f.notifier.frames, 1)
	assert.Equal(t, "turn_completed", f.notifier.frames[0].Type)
}

func TestTutorService_OptionSelectionBecomesUserTurn(t *testing.T) {
	f := newFixture("Which one? [OPTIONS] A) stack B) queue [/OPTIONS]")
	ctx := context.Background()

	_, err := f.svc.SendChat(ctx, &dto.SendChatRequest{SessionId: "s1", Chat: "I'm confused"})
	require.NoError(t, err)

	res, err := f.svc.SendChat(ctx, &dto.SendChatRequest{SessionId: "s1", Option: "b"})
	require.NoError(t, err)
	assert.Equal(t, "B) queue", res.Sent)

	history := f.svc.GetHistory("s1")
	require.Len(t, history.Turns, 4)
	assert.Equal(t, "B) queue", history.Turns[2].Chat)
	assert.Equal(t, "Which one?", history.Turns[1].Chat)
}

func TestTutorService_UnknownOption(t *testing.T) {
	f := newFixture("No options here.")

	_, err := f.svc.SendChat(context.Background(), &dto.SendChatRequest{SessionId: "s1", Option: "C"})
	var fe *fiber.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
}

func TestTutorService_GeneratorFailureApologizes(t *testing.T) {
	f := newFixture("")
	f.llm.err = errors.New("connection refused")

	res, err := f.svc.SendChat(context.Background(), &dto.SendChatRequest{Chat: "help me with sorting"})
	require.NoError(t, err)
	assert.True(t, res.Failed)
	assert.Equal(t, constant.GeneratorFailureMessage, res.Reply)
	assert.Empty(t, f.svc.GetHistory("default").Turns)
	assert.Empty(t, f.publisher.types())
}

func TestTutorService_StreamChat(t *testing.T) {
	f := newFixture("Think about the base case first.")

	stream, err := f.svc.StreamChat(context.Background(), &dto.SendChatRequest{SessionId: "s1", Chat: "explain recursion to me"})
	require.NoError(t, err)
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, ok := stream.Next()
		if !ok {
			break
		}
		sb.WriteString(chunk)
	}
	require.NotNil(t, stream.Final())
	assert.Equal(t, "Think about the base case first.", sb.String())
	assert.Equal(t, sb.String(), stream.Final().Reply)
	assert.Len(t, f.svc.GetHistory("s1").Turns, 2)
}

func TestTutorService_StreamOpenFailure(t *testing.T) {
	f := newFixture("")
	f.llm.err = errors.New("503")

	stream, err := f.svc.StreamChat(context.Background(), &dto.SendChatRequest{Chat: "hello there"})
	require.NoError(t, err)
	defer stream.Close()

	_, ok := stream.Next()
	assert.False(t, ok)
	assert.True(t, stream.Final().Failed)
}

func TestTutorService_UploadErrors(t *testing.T) {
	f := newFixture("ok")
	ctx := context.Background()

	_, err := f.svc.UploadDocument(ctx, "s1", "slides.pptx", []byte("x"))
	var fe *fiber.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fiber.StatusUnsupportedMediaType, fe.Code)
	assert.Equal(t, constant.UnsupportedFileMessage, fe.Message)

	_, err = f.svc.UploadDocument(ctx, "s1", "notes.txt", []byte("   "))
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, constant.EmptyDocumentMessage, fe.Message)
}

func TestTutorService_UploadDetachReset(t *testing.T) {
	f := newFixture("Look at the rubric again.")
	ctx := context.Background()

	res, err := f.svc.UploadDocument(ctx, "s1", "grading_rubric.md", []byte("# Rubric\nCorrectness is worth 50 points."))
	require.NoError(t, err)
	assert.Equal(t, "rubric", res.MaterialType)
	assert.Equal(t, 1, res.Fragments)
	assert.Equal(t, "grading_rubric.md", f.svc.GetHistory("s1").Document)

	chat, err := f.svc.SendChat(ctx, &dto.SendChatRequest{SessionId: "s1", Chat: "How is my work graded?"})
	require.NoError(t, err)
	assert.NotEmpty(t, chat.Sources)

	assert.True(t, f.svc.DetachDocument(ctx, "s1").Detached)
	assert.False(t, f.svc.DetachDocument(ctx, "s1").Detached)

	f.svc.ResetSession(ctx, "s1")
	assert.Empty(t, f.svc.GetHistory("s1").Turns)
	assert.Equal(t, []string{
		events.TypeDocumentIngested,
		events.TypeTurnCompleted,
		events.TypeDocumentDetached,
		events.TypeSessionReset,
	}, f.publisher.types())
}

type memorySheet struct {
	mu   sync.Mutex
	rows [][]interface{}
	err  error
}

func (m *memorySheet) Append(ctx context.Context, spreadsheetID, rangeName, valueInputOption string, rows [][]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *memorySheet) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func TestFeedbackService_SubmitAppendsRow(t *testing.T) {
	f := newFixture("Good question.")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := f.svc.SendChat(ctx, &dto.SendChatRequest{SessionId: "s1", Chat: "why do we need loops"})
	require.NoError(t, err)

	sheet := &memorySheet{}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	fs := NewFeedbackService(pubSub, sheet, config.FeedbackConfig{SpreadsheetID: "sheet", Range: "Sheet1!A:F", ValueInputOption: "RAW"}, f.svc, f.publisher, logger.NewNopLogger())
	require.NoError(t, fs.Consume(ctx))

	require.NoError(t, fs.Submit(ctx, &dto.FeedbackRequest{SessionId: "s1", Rating: 5, Comment: "great"}))

	require.Eventually(t, func() bool { return sheet.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	row := sheet.rows[0]
	assert.Equal(t, "s1", row[1])
	assert.Equal(t, 5, row[2])
	assert.Equal(t, "great", row[3])
	assert.Equal(t, "why do we need loops", row[4])
	assert.Equal(t, "Good question.", row[5])
}

func TestFeedbackService_SheetErrorIsSwallowed(t *testing.T) {
	f := newFixture("ok")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sheet := &memorySheet{err: errors.New("quota exceeded")}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	fs := NewFeedbackService(pubSub, sheet, config.FeedbackConfig{}, f.svc, nil, logger.NewNopLogger())
	require.NoError(t, fs.Consume(ctx))

	assert.NoError(t, fs.Submit(ctx, &dto.FeedbackRequest{Rating: 1}))
}
