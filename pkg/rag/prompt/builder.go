package prompt

import (
	"fmt"
	"strings"

	"tara-tutor-be/internal/constant"
	"tara-tutor-be/pkg/llm"
	"tara-tutor-be/pkg/rag/state"
)

var strategyInstructions = map[state.Strategy]string{
	state.StrategySocratic:     constant.SocraticSystemPrompt,
	state.StrategyRequestPlan:  constant.RequestPlanPrompt,
	state.StrategyCritiquePlan: constant.CritiquePlanPrompt,
	state.StrategyImplement:    constant.ImplementationPrompt,
	state.StrategyReviewCode:   constant.ReviewPrompt,
}

// InstructionBuilder builds the system instruction for one generator turn
type InstructionBuilder struct {
	strategy state.Strategy
	context  string
}

func NewInstructionBuilder(strategy state.Strategy) *InstructionBuilder {
	return &InstructionBuilder{strategy: strategy}
}

// WithCourseMaterial attaches retrieved fragments; empty text is ignored.
func (b *InstructionBuilder) WithCourseMaterial(context string) *InstructionBuilder {
	b.context = context
	return b
}

func (b *InstructionBuilder) Build() (string, error) {
	base, ok := strategyInstructions[b.strategy]
	if !ok {
		return "", fmt.Errorf("no instruction for strategy %q", b.strategy)
	}

	var p strings.Builder
	p.WriteString(base)
	p.WriteString("\n")

	if strings.TrimSpace(b.context) != "" {
		p.WriteString("\n<course_material>\n")
		p.WriteString("The student uploaded the following course material. Use it to ground your reply and\n")
		p.WriteString("refer to it when relevant, but keep guiding rather than quoting answers.\n\n")
		p.WriteString(b.context)
		p.WriteString("\n</course_material>\n")
	}

	p.WriteString("\n")
	p.WriteString(constant.QuizProtocolNote)
	p.WriteString("\n")
	return p.String(), nil
}

// Messages assembles the generator input: instruction, prior turns, then the latest input.
func Messages(instruction string, prior []llm.Message, latest string) []llm.Message {
	out := make([]llm.Message, 0, len(prior)+2)
	out = append(out, llm.SystemMessage(instruction))
	out = append(out, prior...)
	out = append(out, llm.UserMessage(latest))
	return out
}

// FollowUpRequest asks for two follow-up questions about the learner's reflection.
func FollowUpRequest(topic string) string {
	return fmt.Sprintf(constant.FollowUpPromptFormat, topic)
}

// ReflectionPrompt picks the reflection template for a concept question.
func ReflectionPrompt(topic string) string {
	lower := strings.ToLower(topic)
	switch {
	case strings.Contains(lower, "search"):
		return constant.ReflectionSearchPrompt
	case strings.Contains(lower, "sort"):
		return constant.ReflectionSortPrompt
	default:
		return fmt.Sprintf(constant.ReflectionGenericFormat, topicPhrase(topic))
	}
}

// topicPhrase trims the interrogative lead-in so "What is a heap?" becomes "a heap".
func topicPhrase(topic string) string {
	t := strings.TrimSpace(topic)
	lower := strings.ToLower(t)
	for _, lead := range []string{"what is", "how does"} {
		if i := strings.Index(lower, lead); i >= 0 {
			t = strings.TrimSpace(t[i+len(lead):])
			break
		}
	}
	t = strings.TrimRight(t, "?!. ")
	if t == "" {
		return "this topic"
	}
	return t
}
