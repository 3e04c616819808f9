package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"tara-tutor-be/internal/constant"
	"tara-tutor-be/internal/dto"
	"tara-tutor-be/internal/pkg/logger"
	"tara-tutor-be/pkg/events"
	"tara-tutor-be/pkg/rag/response"
	"tara-tutor-be/pkg/store"
	"tara-tutor-be/pkg/tutor"

	"github.com/gofiber/fiber/v2"
)

// EventPublisher receives domain events. *nats.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Notifier pushes frames to the sockets watching a session.
type Notifier interface {
	Broadcast(sessionID string, msg dto.WsOutbound)
}

type ITutorService interface {
	SendChat(ctx context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	StreamChat(ctx context.Context, req *dto.SendChatRequest) (*ChatStream, error)
	UploadDocument(ctx context.Context, sessionId, fileName string, data []byte) (*dto.UploadDocumentResponse, error)
	DetachDocument(ctx context.Context, sessionId string) *dto.DetachDocumentResponse
	ResetSession(ctx context.Context, sessionId string)
	GetHistory(sessionId string) *dto.SessionHistoryResponse
	LastExchange(sessionId string) (question, answer string)
}

type tutorService struct {
	engine    *tutor.Engine
	publisher EventPublisher
	notifier  Notifier
	logger    logger.ILogger
}

// NewTutorService wires the engine to the outer surfaces. publisher and notifier may be nil.
func NewTutorService(engine *tutor.Engine, publisher EventPublisher, notifier Notifier, log logger.ILogger) ITutorService {
	return &tutorService{
		engine:    engine,
		publisher: publisher,
		notifier:  notifier,
		logger:    log,
	}
}

func sessionOrDefault(id string) string {
	if id == "" {
		return store.DefaultSessionID
	}
	return id
}

// userText resolves a quiz option selection into the learner's next message.
func (s *tutorService) userText(sessionId string, req *dto.SendChatRequest) (string, error) {
	if req.Option == "" {
		return req.Chat, nil
	}
	text, err := s.engine.OptionText(sessionId, req.Option)
	if errors.Is(err, tutor.ErrUnknownOption) {
		return "", fiber.NewError(fiber.StatusBadRequest, "There is no such option on the last question")
	}
	return text, err
}

func (s *tutorService) SendChat(ctx context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	sessionId := sessionOrDefault(req.SessionId)
	text, err := s.userText(sessionId, req)
	if err != nil {
		return nil, err
	}

	reply, err := s.engine.Respond(ctx, sessionId, text)
	if err != nil {
		return s.failure(sessionId, text, err)
	}

	res := toChatResponse(sessionId, text, reply)
	s.turnCompleted(ctx, res)
	return res, nil
}

// failure turns a generator error into an apology; other errors are returned as they are.
func (s *tutorService) failure(sessionId, text string, err error) (*dto.SendChatResponse, error) {
	if errors.Is(err, tutor.ErrEmptyMessage) {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if !errors.Is(err, tutor.ErrGeneratorCall) {
		return nil, err
	}

	details := map[string]interface{}{"session_id": sessionId, "error": err.Error()}
	var genErr *tutor.GeneratorError
	if errors.As(err, &genErr) {
		details["retryable"] = genErr.Retryable
	}
	s.logger.Error("TutorService", "Generator call failed, turn not recorded", details)

	history := s.engine.History(sessionId)
	return &dto.SendChatResponse{
		SessionId:  sessionId,
		Sent:       text,
		Reply:      constant.GeneratorFailureMessage,
		Stage:      string(history.Stage),
		Reflection: history.Reflection,
		Failed:     true,
	}, nil
}

func (s *tutorService) turnCompleted(ctx context.Context, res *dto.SendChatResponse) {
	s.publish(ctx, events.New(events.TypeTurnCompleted, res.SessionId, map[string]interface{}{
		"stage":    res.Stage,
		"strategy": res.Strategy,
		"grounded": len(res.Sources) > 0,
	}))
	if s.notifier != nil {
		s.notifier.Broadcast(res.SessionId, dto.WsOutbound{Type: "turn_completed", SessionId: res.SessionId, Reply: res})
	}
}

func (s *tutorService) publish(ctx context.Context, ev events.Event) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, ev); err != nil {
		s.logger.Warn("TutorService", "Failed to publish event", map[string]interface{}{
			"type":  ev.EventType(),
			"error": err.Error(),
		})
	}
}

// ChatStream is one streamed turn seen from the transport.
type ChatStream struct {
	svc       *tutorService
	ctx       context.Context
	sessionId string
	sent      string
	inner     *tutor.ReplyStream
	final     *dto.SendChatResponse
}

func (s *tutorService) StreamChat(ctx context.Context, req *dto.SendChatRequest) (*ChatStream, error) {
	sessionId := sessionOrDefault(req.SessionId)
	text, err := s.userText(sessionId, req)
	if err != nil {
		return nil, err
	}

	cs := &ChatStream{svc: s, ctx: ctx, sessionId: sessionId, sent: text}
	inner, err := s.engine.RespondStream(ctx, sessionId, text)
	if err != nil {
		res, ferr := s.failure(sessionId, text, err)
		if ferr != nil {
			return nil, ferr
		}
		cs.final = res
		return cs, nil
	}
	cs.inner = inner
	return cs, nil
}

// Next returns the next increment. When it reports false the turn is over and Final holds
// the outcome, which is an apology if generation broke off.
func (c *ChatStream) Next() (string, bool) {
	if c.final != nil || c.inner == nil {
		return "", false
	}
	chunk, err := c.inner.Recv()
	switch {
	case err == nil:
		return chunk, true
	case errors.Is(err, io.EOF):
		c.final = toChatResponse(c.sessionId, c.sent, c.inner.Reply())
		c.svc.turnCompleted(c.ctx, c.final)
	default:
		c.final, _ = c.svc.failure(c.sessionId, c.sent, err)
		if c.final == nil {
			c.final = &dto.SendChatResponse{SessionId: c.sessionId, Sent: c.sent, Reply: constant.GeneratorFailureMessage, Failed: true}
		}
	}
	return "", false
}

func (c *ChatStream) Final() *dto.SendChatResponse {
	return c.final
}

func (c *ChatStream) Close() error {
	if c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

func (s *tutorService) UploadDocument(ctx context.Context, sessionId, fileName string, data []byte) (*dto.UploadDocumentResponse, error) {
	sessionId = sessionOrDefault(sessionId)
	res, err := s.engine.Attach(ctx, sessionId, fileName, data)
	if err != nil {
		switch {
		case errors.Is(err, tutor.ErrUnsupportedFileType):
			return nil, fiber.NewError(fiber.StatusUnsupportedMediaType, constant.UnsupportedFileMessage)
		case errors.Is(err, tutor.ErrEmptyDocument):
			return nil, fiber.NewError(fiber.StatusUnprocessableEntity, constant.EmptyDocumentMessage)
		default:
			s.logger.Error("TutorService", "Document ingestion failed", map[string]interface{}{
				"session_id": sessionId,
				"file":       fileName,
				"error":      err.Error(),
			})
			return nil, fiber.NewError(fiber.StatusBadGateway, constant.IngestionFailureMessage)
		}
	}

	s.publish(ctx, events.New(events.TypeDocumentIngested, sessionId, map[string]interface{}{
		"file":          res.FileName,
		"material_type": res.MaterialType,
		"fragments":     res.Fragments,
	}))

	return &dto.UploadDocumentResponse{
		SessionId:    sessionId,
		FileName:     res.FileName,
		MaterialType: res.MaterialType,
		Fragments:    res.Fragments,
		Replaced:     res.Replaced,
		Message:      fmt.Sprintf(constant.DocumentAttachedFormat, res.FileName, res.Fragments),
	}, nil
}

func (s *tutorService) DetachDocument(ctx context.Context, sessionId string) *dto.DetachDocumentResponse {
	sessionId = sessionOrDefault(sessionId)
	detached := s.engine.Detach(ctx, sessionId)
	if detached {
		s.publish(ctx, events.New(events.TypeDocumentDetached, sessionId, nil))
	}
	return &dto.DetachDocumentResponse{SessionId: sessionId, Detached: detached}
}

func (s *tutorService) ResetSession(ctx context.Context, sessionId string) {
	sessionId = sessionOrDefault(sessionId)
	s.engine.Reset(ctx, sessionId)
	s.publish(ctx, events.New(events.TypeSessionReset, sessionId, nil))
	if s.notifier != nil {
		s.notifier.Broadcast(sessionId, dto.WsOutbound{Type: "session_reset", SessionId: sessionId})
	}
}

func (s *tutorService) GetHistory(sessionId string) *dto.SessionHistoryResponse {
	view := s.engine.History(sessionOrDefault(sessionId))

	turns := make([]dto.TurnDTO, 0, len(view.Transcript))
	for _, t := range view.Transcript {
		chat := t.Content
		if t.Role == store.RoleAssistant {
			chat, _ = response.ParseOptions(t.Content)
		}
		turns = append(turns, dto.TurnDTO{
			Id:        t.ID,
			Role:      string(t.Role),
			Chat:      chat,
			Options:   toOptionDTOs(t.Options),
			CreatedAt: t.CreatedAt,
		})
	}

	return &dto.SessionHistoryResponse{
		SessionId:  view.ID,
		Stage:      string(view.Stage),
		Reflection: view.Reflection,
		Document:   view.Document,
		Turns:      turns,
	}
}

func (s *tutorService) LastExchange(sessionId string) (string, string) {
	view := s.engine.History(sessionOrDefault(sessionId))
	n := len(view.Transcript)
	if n < 2 {
		return "", ""
	}
	answer, _ := response.ParseOptions(view.Transcript[n-1].Content)
	return view.Transcript[n-2].Content, answer
}

func toChatResponse(sessionId, sent string, r *tutor.Reply) *dto.SendChatResponse {
	res := &dto.SendChatResponse{
		SessionId:  sessionId,
		Sent:       sent,
		Reply:      r.Text,
		Options:    toOptionDTOs(r.Options),
		Stage:      string(r.Stage),
		Reflection: r.Reflection,
		Strategy:   string(r.Strategy),
		Notice:     r.Notice,
	}
	for _, src := range r.Sources {
		res.Sources = append(res.Sources, dto.SourceDTO{Source: src.Source, ChunkIndex: src.ChunkIndex, Score: src.Score})
	}
	return res
}

func toOptionDTOs(opts []store.QuizOption) []dto.QuizOptionDTO {
	if len(opts) == 0 {
		return nil
	}
	out := make([]dto.QuizOptionDTO, len(opts))
	for i, o := range opts {
		out[i] = dto.QuizOptionDTO{Letter: o.Letter, Text: o.Text}
	}
	return out
}
