package response

import (
	"regexp"
	"strings"

	"tara-tutor-be/pkg/store"
)

const MaxOptions = 4

var (
	optionsBlock  = regexp.MustCompile(`(?is)\[OPTIONS\](.*?)\[/OPTIONS\]`)
	optionMarker  = regexp.MustCompile(`(?:^|\s)([A-D])\)`)
	listPrefix    = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•]|Q\d+[:.)])\s*`)
	blankRunLines = regexp.MustCompile(`\n{3,}`)
)

// ParseOptions strips every [OPTIONS] block from text and returns the choices of the last one.
// A reply without a complete block comes back unchanged with no options.
func ParseOptions(text string) (string, []store.QuizOption) {
	blocks := optionsBlock.FindAllStringSubmatch(text, -1)
	if len(blocks) == 0 {
		return strings.TrimSpace(text), nil
	}

	display := optionsBlock.ReplaceAllString(text, "")
	display = blankRunLines.ReplaceAllString(strings.TrimSpace(display), "\n\n")

	return display, splitOptions(blocks[len(blocks)-1][1])
}

func splitOptions(body string) []store.QuizOption {
	marks := optionMarker.FindAllStringSubmatchIndex(body, -1)
	options := make([]store.QuizOption, 0, len(marks))
	for i, m := range marks {
		// m[1] is the end of the whole marker, m[2]:m[3] the letter
		end := len(body)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		text := strings.TrimSpace(body[m[1]:end])
		if text == "" {
			continue
		}
		options = append(options, store.QuizOption{Letter: body[m[2]:m[3]], Text: text})
		if len(options) == MaxOptions {
			break
		}
	}
	if len(options) == 0 {
		return nil
	}
	return options
}

// SelectionText is the user turn sent when a learner picks a quiz option.
func SelectionText(opt store.QuizOption) string {
	return opt.Letter + ") " + opt.Text
}

// SplitFollowUps breaks a generated list of questions into individual questions.
func SplitFollowUps(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		q := strings.TrimSpace(listPrefix.ReplaceAllString(line, ""))
		q = strings.Trim(q, "*")
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, q)
	}
	return out
}
