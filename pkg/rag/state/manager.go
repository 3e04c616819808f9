package state

import (
	"fmt"

	"tara-tutor-be/internal/pkg/logger"
	"tara-tutor-be/pkg/store"
)

// Stage is the pedagogical phase of the code-help dialogue
type Stage string

const (
	StageInitial        Stage = "initial"
	StagePlanning       Stage = "planning"
	StageImplementation Stage = "implementation"
	StageReview         Stage = "review"
)

func (s Stage) Valid() bool {
	switch s {
	case StageInitial, StagePlanning, StageImplementation, StageReview:
		return true
	}
	return false
}

// Event is the classification of a single learner turn
type Event string

const (
	EventMessage       Event = "message"        // anything else
	EventCodeRequest   Event = "code_request"   // asks for code
	EventPlanSubmitted Event = "plan_submitted" // mentions a plan or pseudocode
)

// Strategy selects the instruction sent to the generator for a turn
type Strategy string

const (
	StrategySocratic     Strategy = "socratic"
	StrategyRequestPlan  Strategy = "request_plan"
	StrategyCritiquePlan Strategy = "critique_plan"
	StrategyImplement    Strategy = "implement"
	StrategyReviewCode   Strategy = "review"
	StrategyReflect      Strategy = "reflection_prompt"
	StrategyFollowUp     Strategy = "reflection_follow_up"
)

// Transition is one row of the stage table
type Transition struct {
	Strategy Strategy
	Next     Stage
}

type key struct {
	stage Stage
	event Event
}

// table is the full state x event -> (strategy, next stage) mapping. Only code requests and
// plan submissions move the stage; any other turn gets a Socratic reply in place.
var table = map[key]Transition{
	{StageInitial, EventCodeRequest}:   {StrategyRequestPlan, StagePlanning},
	{StageInitial, EventPlanSubmitted}: {StrategySocratic, StageInitial},
	{StageInitial, EventMessage}:       {StrategySocratic, StageInitial},

	{StagePlanning, EventCodeRequest}:   {StrategyCritiquePlan, StagePlanning},
	{StagePlanning, EventPlanSubmitted}: {StrategyCritiquePlan, StageImplementation},
	{StagePlanning, EventMessage}:       {StrategySocratic, StagePlanning},

	{StageImplementation, EventCodeRequest}:   {StrategyImplement, StageReview},
	{StageImplementation, EventPlanSubmitted}: {StrategySocratic, StageImplementation},
	{StageImplementation, EventMessage}:       {StrategySocratic, StageImplementation},

	{StageReview, EventCodeRequest}:   {StrategyReviewCode, StageInitial},
	{StageReview, EventPlanSubmitted}: {StrategySocratic, StageReview},
	{StageReview, EventMessage}:       {StrategySocratic, StageReview},
}

// Lookup returns the transition for stage and event.
func Lookup(stage Stage, event Event) (Transition, error) {
	if t, ok := table[key{stage, event}]; ok {
		return t, nil
	}
	return Transition{}, fmt.Errorf("no transition for stage %q and event %q", stage, event)
}

// Manager handles session stage transitions
type Manager struct {
	logger logger.ILogger
}

// NewManager creates a new state manager
func NewManager(log logger.ILogger) *Manager {
	return &Manager{logger: log}
}

// Current returns the session stage, repairing unknown values to initial.
func (m *Manager) Current(session *store.Session) Stage {
	st := Stage(session.Stage)
	if !st.Valid() {
		m.logger.Warn("State", "Unknown stage, resetting to initial", map[string]interface{}{
			"session_id": session.ID,
			"stage":      session.Stage,
		})
		return StageInitial
	}
	return st
}

// Plan resolves the transition for the next turn without mutating the session.
func (m *Manager) Plan(session *store.Session, event Event) (Transition, error) {
	return Lookup(m.Current(session), event)
}

// Apply moves the session to the transition's next stage
func (m *Manager) Apply(session *store.Session, t Transition) {
	from := session.Stage
	session.Stage = string(t.Next)
	if from != session.Stage {
		m.logger.Info("State", "Stage transition", map[string]interface{}{
			"session_id": session.ID,
			"from":       from,
			"to":         session.Stage,
			"strategy":   string(t.Strategy),
		})
	}
}

// EnterReflection starts the concept-question track
func (m *Manager) EnterReflection(session *store.Session, topic string) {
	session.Reflection = true
	session.Topic = topic
	m.logger.Info("State", "Reflection pending", map[string]interface{}{"session_id": session.ID})
}

// CompleteReflection returns the session to open dialogue
func (m *Manager) CompleteReflection(session *store.Session) {
	session.Reflection = false
	m.logger.Info("State", "Reflection done", map[string]interface{}{"session_id": session.ID})
}
