package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tara-tutor-be/internal/constant"
	"tara-tutor-be/internal/pkg/logger"
	"tara-tutor-be/pkg/index"
	"tara-tutor-be/pkg/ingest"
	"tara-tutor-be/pkg/llm"
	"tara-tutor-be/pkg/rag/history"
	"tara-tutor-be/pkg/rag/prompt"
	"tara-tutor-be/pkg/rag/response"
	"tara-tutor-be/pkg/rag/search"
	"tara-tutor-be/pkg/rag/state"
	"tara-tutor-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SessionStore is the session lifecycle the engine needs.
type SessionStore interface {
	GetOrCreate(sessionID string) *store.Session
	Get(sessionID string) (*store.Session, bool)
	Save(session *store.Session)
	Evict(session *store.Session)
}

type Parser interface {
	Parse(ctx context.Context, fileName string, data []byte) ([]store.Fragment, error)
}

type Generator interface {
	Generate(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error)
	Stream(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.StreamReader, error)
	FollowUps(ctx context.Context, topic, reflection string) ([]string, error)
}

type Deps struct {
	Sessions  SessionStore
	Parser    Parser
	Indexer   index.Builder
	Generator Generator
	Logger    logger.ILogger
	Search    search.Config
}

// Engine runs the tutoring dialogue for every session.
type Engine struct {
	sessions  SessionStore
	parser    Parser
	indexer   index.Builder
	generator Generator
	augmenter *search.Augmenter
	states    *state.Manager
	logger    logger.ILogger
	tracer    trace.Tracer
}

func NewEngine(deps Deps) *Engine {
	cfg := deps.Search
	if cfg.TopK <= 0 {
		cfg = search.DefaultConfig()
	}
	return &Engine{
		sessions:  deps.Sessions,
		parser:    deps.Parser,
		indexer:   deps.Indexer,
		generator: deps.Generator,
		augmenter: search.NewAugmenter(deps.Generator, cfg, deps.Logger),
		states:    state.NewManager(deps.Logger),
		logger:    deps.Logger,
		tracer:    otel.Tracer("tara/tutor"),
	}
}

// turnPlan is everything decided before the generator runs. Nothing in it touches the session.
type turnPlan struct {
	strategy   state.Strategy
	transition *state.Transition // nil on the reflection track
	messages   []llm.Message     // generator input; nil when fixed is set
	fixed      string            // reply that needs no generation
	enterTopic string            // non-empty: start the reflection track on commit
	endReflect bool
	fragments  []store.Fragment
	notice     string
}

// Respond runs one blocking turn. On any error the session is left as it was.
func (e *Engine) Respond(ctx context.Context, sessionID, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	ctx, span := e.tracer.Start(ctx, "tutor.respond", trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	session := e.acquire(sessionID)
	defer session.Unlock()

	plan, err := e.prepare(ctx, session, text)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	raw := plan.fixed
	if plan.messages != nil {
		raw, err = e.generator.Generate(ctx, plan.messages)
		if err != nil {
			span.RecordError(err)
			return nil, newGeneratorError(err)
		}
	}

	reply := e.commit(session, plan, text, raw)
	span.SetAttributes(attribute.String("strategy", string(reply.Strategy)), attribute.String("stage", string(reply.Stage)))
	return reply, nil
}

// acquire returns the live session for id, locked. A session retired by a reset or an expiry
// while the caller waited for its lock is skipped in favour of the one that replaced it.
func (e *Engine) acquire(sessionID string) *store.Session {
	for {
		session := e.sessions.GetOrCreate(sessionID)
		session.Lock()
		if !session.Retired() {
			return session
		}
		session.Unlock()
		e.sessions.Evict(session)
	}
}

// prepare decides the strategy for text and gathers the generator input.
func (e *Engine) prepare(ctx context.Context, session *store.Session, text string) (*turnPlan, error) {
	// concept-question track
	if session.Reflection {
		questions, err := e.generator.FollowUps(ctx, session.Topic, text)
		if err != nil {
			return nil, newGeneratorError(err)
		}
		return &turnPlan{
			strategy:   state.StrategyFollowUp,
			fixed:      constant.ReflectionAckPrefix + questions[0],
			endReflect: true,
		}, nil
	}
	if len(session.Transcript) == 0 && state.IsConceptQuestion(text) {
		return &turnPlan{
			strategy:   state.StrategyReflect,
			fixed:      prompt.ReflectionPrompt(text),
			enterTopic: text,
		}, nil
	}

	// code-help track
	stage := e.states.Current(session)
	tr, err := e.states.Plan(session, state.Classify(stage, text))
	if err != nil {
		return nil, err
	}

	plan := &turnPlan{strategy: tr.Strategy, transition: &tr}

	res, err := e.augmenter.Augment(ctx, session.Snapshot(), text, indexOf(session))
	switch {
	case err == nil:
		plan.fragments = res.Fragments
	case errors.Is(err, search.ErrRetrieval):
		e.logger.Warn("Tutor", "Retrieval unavailable, answering ungrounded", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		plan.notice = constant.RetrievalFailureNotice
		res = &search.Result{}
	default:
		return nil, err
	}

	instruction, err := prompt.NewInstructionBuilder(tr.Strategy).WithCourseMaterial(res.Context).Build()
	if err != nil {
		return nil, err
	}
	plan.messages = prompt.Messages(instruction, history.Recent(session, historyWindow(tr.Strategy)), text)
	return plan, nil
}

func historyWindow(s state.Strategy) int {
	switch s {
	case state.StrategyCritiquePlan:
		return constant.PlanningHistoryWindow
	case state.StrategyImplement, state.StrategyReviewCode:
		return constant.CodeHistoryWindow
	default:
		return constant.DialogueHistoryWindow
	}
}

// commit appends the turn pair and applies the state change. Callers hold the session lock.
func (e *Engine) commit(session *store.Session, plan *turnPlan, userText, raw string) *Reply {
	display, options := response.ParseOptions(raw)

	session.Append(
		store.NewTurn(store.RoleUser, userText, nil),
		store.NewTurn(store.RoleAssistant, raw, options),
	)

	switch {
	case plan.transition != nil:
		e.states.Apply(session, *plan.transition)
	case plan.enterTopic != "":
		e.states.EnterReflection(session, plan.enterTopic)
	case plan.endReflect:
		e.states.CompleteReflection(session)
	}
	e.sessions.Save(session)

	return &Reply{
		Text:       display,
		Options:    options,
		Raw:        raw,
		Stage:      e.states.Current(session),
		Reflection: session.Reflection,
		Strategy:   plan.strategy,
		Sources:    sourcesOf(plan.fragments),
		Notice:     plan.notice,
	}
}

func indexOf(session *store.Session) index.Index {
	if session.Index == nil {
		return nil
	}
	if idx, ok := session.Index.(index.Index); ok {
		return idx
	}
	return nil
}

// OptionText resolves a quiz letter against the options of the session's last reply.
func (e *Engine) OptionText(sessionID, letter string) (string, error) {
	session, found := e.sessions.Get(sessionID)
	if !found {
		return "", ErrUnknownOption
	}
	session.Lock()
	defer session.Unlock()

	turns := session.RecentTurns(1)
	if len(turns) == 0 {
		return "", ErrUnknownOption
	}
	for _, opt := range turns[0].Options {
		if strings.EqualFold(opt.Letter, letter) {
			return response.SelectionText(opt), nil
		}
	}
	return "", ErrUnknownOption
}

// Attach ingests a file and makes it the session's only document index.
func (e *Engine) Attach(ctx context.Context, sessionID, fileName string, data []byte) (*AttachResult, error) {
	ctx, span := e.tracer.Start(ctx, "tutor.attach", trace.WithAttributes(attribute.String("file", fileName)))
	defer span.End()

	fragments, err := e.parser.Parse(ctx, fileName, data)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if sessionID == "" {
		sessionID = store.DefaultSessionID
	}
	idx, err := e.indexer.Build(ctx, sessionID, fileName, fragments)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("build index: %w", err)
	}

	session := e.acquire(sessionID)
	old := indexOf(session)
	session.Index = idx
	e.sessions.Save(session)
	session.Unlock()

	result := &AttachResult{
		FileName:     fileName,
		MaterialType: string(ingest.ClassifyMaterial(fileName)),
		Fragments:    idx.Size(),
	}
	if old != nil {
		result.Replaced = old.Source()
		e.closeIndex(ctx, session.ID, old)
	}

	e.logger.Info("Tutor", "Document attached", map[string]interface{}{
		"session_id": session.ID,
		"file":       fileName,
		"fragments":  result.Fragments,
		"replaced":   result.Replaced,
	})
	return result, nil
}

// Detach removes the session's document index. It reports whether one was attached.
func (e *Engine) Detach(ctx context.Context, sessionID string) bool {
	session, found := e.sessions.Get(sessionID)
	if !found {
		return false
	}
	session.Lock()
	if session.Retired() {
		session.Unlock()
		return false
	}
	old := indexOf(session)
	session.Index = nil
	session.Unlock()

	if old == nil {
		return false
	}
	e.closeIndex(ctx, session.ID, old)
	return true
}

// Reset discards the session for id, its transcript, stage and index. Other sessions are untouched.
// A turn still waiting on the old session lands on a fresh one.
func (e *Engine) Reset(ctx context.Context, sessionID string) {
	if sessionID == "" {
		sessionID = store.DefaultSessionID
	}
	if session, found := e.sessions.Get(sessionID); found {
		session.Lock()
		detached := session.Reset(string(state.StageInitial))
		session.Retire()
		session.Unlock()
		if old, ok := detached.(index.Index); ok {
			e.closeIndex(ctx, sessionID, old)
		}
		e.sessions.Evict(session)
	}
	e.logger.Info("Tutor", "Session reset", map[string]interface{}{"session_id": sessionID})
}

// Release retires a session dropped from the store and closes its index. Waits for an
// in-flight turn.
func (e *Engine) Release(ctx context.Context, session *store.Session) {
	session.Lock()
	session.Retire()
	old := indexOf(session)
	session.Index = nil
	session.Unlock()
	if old != nil {
		e.closeIndex(ctx, session.ID, old)
	}
}

func (e *Engine) closeIndex(ctx context.Context, sessionID string, idx index.Index) {
	if err := idx.Close(ctx); err != nil {
		e.logger.Warn("Tutor", "Failed to close document index", map[string]interface{}{
			"session_id": sessionID,
			"source":     idx.Source(),
			"error":      err.Error(),
		})
	}
}

// SessionView is a read-only copy of a session.
type SessionView struct {
	ID         string
	Stage      state.Stage
	Reflection bool
	Document   string
	Transcript []store.Turn
}

// History returns a copy of the session. Unknown ids yield an empty initial session view.
func (e *Engine) History(sessionID string) SessionView {
	if sessionID == "" {
		sessionID = store.DefaultSessionID
	}
	session, found := e.sessions.Get(sessionID)
	if !found {
		return SessionView{ID: sessionID, Stage: state.StageInitial, Transcript: []store.Turn{}}
	}
	session.Lock()
	defer session.Unlock()

	view := SessionView{
		ID:         session.ID,
		Stage:      e.states.Current(session),
		Reflection: session.Reflection,
		Transcript: session.Snapshot(),
	}
	if session.Index != nil {
		view.Document = session.Index.Source()
	}
	return view
}
