package forms

import (
	"testing"

	"github.com/localnerve/airtable-forms/internal/types"
	"github.com/stretchr/testify/assert"
)

func conditional(dependsOn string, op Operator, value string) Question {
	return Question{
		RemoteFieldID:   "fldQ2",
		RemoteFieldName: "Details",
		Label:           "Details",
		Type:            ShortText,
		Conditions: types.FlexList[Condition]{
			{DependsOnFieldID: dependsOn, Operator: op, Value: types.FlexString(value)},
		},
	}
}

func TestIsVisibleWithoutConditions(t *testing.T) {
	q := Question{RemoteFieldID: "fldQ1", Type: ShortText}
	answersSets := []Answers{
		nil,
		{},
		{"fldQ1": "anything"},
		{"fldOther": []interface{}{"a"}},
	}
	for _, answers := range answersSets {
		assert.True(t, IsVisible(q, answers))
	}
}

func TestIsVisibleEquals(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		answers Answers
		want    bool
	}{
		{name: "match", value: "Yes", answers: Answers{"fldQ1": "Yes"}, want: true},
		{name: "mismatch", value: "Yes", answers: Answers{"fldQ1": "No"}, want: false},
		{name: "absent answer equals empty value", value: "", answers: Answers{}, want: true},
		{name: "absent answer hides non-empty value", value: "Yes", answers: Answers{}, want: false},
		{name: "number coerced", value: "3", answers: Answers{"fldQ1": float64(3)}, want: true},
		{name: "bool coerced", value: "true", answers: Answers{"fldQ1": true}, want: true},
		{name: "list coerced", value: "a,b", answers: Answers{"fldQ1": []interface{}{"a", "b"}}, want: true},
		{name: "case sensitive", value: "yes", answers: Answers{"fldQ1": "Yes"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := conditional("fldQ1", Equals, tt.value)
			assert.Equal(t, tt.want, IsVisible(q, tt.answers))
		})
	}
}

func TestIsVisibleOtherOperatorsNeverHide(t *testing.T) {
	for _, op := range []Operator{NotEquals, In, NotIn, Contains, "unknown"} {
		q := conditional("fldQ1", op, "Yes")
		assert.True(t, IsVisible(q, Answers{"fldQ1": "No"}), "operator %s", op)
		assert.True(t, IsVisible(q, Answers{}), "operator %s", op)
	}
}

func TestIsVisibleEmptyDependency(t *testing.T) {
	q := conditional("", Equals, "Yes")
	assert.True(t, IsVisible(q, Answers{"fldQ1": "No"}))
}

func TestIsVisibleOnlyFirstConditionCounts(t *testing.T) {
	q := conditional("fldQ1", Equals, "Yes")
	q.Conditions = append(q.Conditions, Condition{DependsOnFieldID: "fldQ3", Operator: Equals, Value: "never"})
	assert.True(t, IsVisible(q, Answers{"fldQ1": "Yes"}))
}

func TestIsVisibleDanglingDependency(t *testing.T) {
	q := conditional("fldMissing", Equals, "")
	assert.True(t, IsVisible(q, Answers{"fldQ1": "Yes"}))
}

func TestVisibleQuestionsKeepsOrder(t *testing.T) {
	s := &Schema{Questions: []Question{
		{RemoteFieldID: "fldQ1", Type: SingleSelect, Options: types.FlexList[string]{"Yes", "No"}},
		conditional("fldQ1", Equals, "Yes"),
		{RemoteFieldID: "fldQ3", Type: LongText},
	}}

	hidden := VisibleQuestions(s, Answers{"fldQ1": "No"})
	assert.Equal(t, []string{"fldQ1", "fldQ3"}, fieldIDs(hidden))

	shown := VisibleQuestions(s, Answers{"fldQ1": "Yes"})
	assert.Equal(t, []string{"fldQ1", "fldQ2", "fldQ3"}, fieldIDs(shown))
}

func fieldIDs(qs []Question) []string {
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.RemoteFieldID
	}
	return ids
}
