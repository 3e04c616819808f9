package state

import (
	"strings"
	"unicode"
)

var codeLexicon = map[string]struct{}{
	"code": {}, "coding": {}, "example": {}, "implement": {}, "implementation": {},
	"write": {}, "create": {}, "build": {}, "develop": {}, "script": {},
	"program": {}, "function": {}, "class": {}, "method": {}, "algorithm": {},
	"snippet": {}, "syntax": {},
	"python": {}, "java": {}, "javascript": {}, "typescript": {}, "c++": {}, "c#": {},
	"golang": {}, "rust": {}, "ruby": {}, "kotlin": {}, "swift": {}, "sql": {},
	"html": {}, "css": {}, "php": {}, "scala": {},
}

var planMarkers = []string{"pseudo", "plan"}

var conceptMarkers = []string{"what is", "how does"}

// words lowercases text and splits it on anything that is not a letter, digit, '+' or '#'.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

// IsCodeRequest reports whether text contains a lexicon word (plural forms included).
func IsCodeRequest(text string) bool {
	for _, w := range words(text) {
		if _, ok := codeLexicon[w]; ok {
			return true
		}
		if strings.HasSuffix(w, "s") {
			if _, ok := codeLexicon[strings.TrimSuffix(w, "s")]; ok {
				return true
			}
		}
	}
	return false
}

// MentionsPlan reports whether the learner refers to a plan or pseudocode.
func MentionsPlan(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range planMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// IsConceptQuestion reports whether text opens with an interrogative concept question.
func IsConceptQuestion(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range conceptMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Classify maps a learner turn to an event. A plan or pseudocode mention only counts as a
// submission while planning, and there it wins over a code request so "here is my
// pseudocode for the function" advances the flow.
func Classify(stage Stage, text string) Event {
	if stage == StagePlanning && MentionsPlan(text) {
		return EventPlanSubmitted
	}
	if IsCodeRequest(text) {
		return EventCodeRequest
	}
	return EventMessage
}
