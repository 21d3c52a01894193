package forms

import "github.com/localnerve/airtable-forms/internal/types"

// Answers maps a question's remote field id to its raw answer
type Answers map[string]interface{}

// IsVisible decides whether a question is shown given the current answers.
//
// Only the first condition is evaluated and only the equals operator can hide a
// question. Any other operator, or a condition without a dependency, leaves the
// question visible. Answers of hidden questions still take part in evaluation.
func IsVisible(q Question, answers Answers) bool {
	c, ok := q.Conditions.First()
	if !ok {
		return true
	}
	if c.DependsOnFieldID == "" {
		return true
	}

	switch c.Operator {
	case Equals:
		return types.Stringify(answers[c.DependsOnFieldID]) == c.Value.String()
	default:
		return true
	}
}

// VisibleQuestions returns the questions of s that are visible for answers, in schema order.
func VisibleQuestions(s *Schema, answers Answers) []Question {
	visible := make([]Question, 0, len(s.Questions))
	for _, q := range s.Questions {
		if IsVisible(q, answers) {
			visible = append(visible, q)
		}
	}
	return visible
}
