package forms

import (
	"encoding/json"
	"testing"

	"github.com/localnerve/airtable-forms/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft() Draft {
	return Draft{
		Name:     "Feedback",
		TableRef: TableRef{BaseID: "appBase", TableID: "tblTable", TableName: "Responses"},
		Questions: []Question{
			{RemoteFieldID: "fld1", RemoteFieldName: "Name", Label: "Your name", Type: ShortText, Required: true},
		},
	}
}

func TestDraftValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *Draft)
		wantErr string
	}{
		{name: "valid", mutate: func(d *Draft) {}},
		{name: "blank name", mutate: func(d *Draft) { d.Name = "   " }, wantErr: "Form name is required"},
		{name: "missing base", mutate: func(d *Draft) { d.TableRef.BaseID = "" }, wantErr: "A target base and table are required"},
		{name: "missing table", mutate: func(d *Draft) { d.TableRef.TableID = "" }, wantErr: "A target base and table are required"},
		{name: "no questions", mutate: func(d *Draft) { d.Questions = nil }, wantErr: "At least one question is required"},
		{
			name:    "unbound question",
			mutate:  func(d *Draft) { d.Questions[0].RemoteFieldID = "" },
			wantErr: "Question 1 is not bound to a table field",
		},
		{
			name:    "bad type",
			mutate:  func(d *Draft) { d.Questions[0].Type = "rating" },
			wantErr: `Question "Name" has unsupported type "rating"`,
		},
		{
			name: "bad operator",
			mutate: func(d *Draft) {
				d.Questions[0].Conditions = types.FlexList[Condition]{{DependsOnFieldID: "x", Operator: "gt"}}
			},
			wantErr: `Question "Name" has unsupported operator "gt"`,
		},
		{
			name: "duplicate field",
			mutate: func(d *Draft) {
				d.Questions = append(d.Questions, d.Questions[0])
			},
			wantErr: `Field "Name" is used by more than one question`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			err := d.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, types.IsType(err, types.TypeValidation))
			var ce *types.CustomError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantErr, ce.Message)
		})
	}
}

func TestDraftNormalize(t *testing.T) {
	d := validDraft()
	d.Name = "  Feedback  "
	d.Questions[0].Label = ""
	d.Normalize()
	assert.Equal(t, "Feedback", d.Name)
	assert.Equal(t, "Name", d.Questions[0].Label)
}

func TestQuestionDecodesSingleCondition(t *testing.T) {
	var q Question
	err := json.Unmarshal([]byte(`{
		"remoteFieldId": "fld2",
		"remoteFieldName": "Why",
		"type": "long_text",
		"conditions": {"dependsOnFieldId": "fld1", "operator": "equals", "value": 1}
	}`), &q)
	require.NoError(t, err)
	require.Len(t, q.Conditions, 1)
	assert.Equal(t, "fld1", q.Conditions[0].DependsOnFieldID)
	assert.Equal(t, types.FlexString("1"), q.Conditions[0].Value)

	out, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"options":[]`)
	assert.Contains(t, string(out), `"value":"1"`)
}

func TestSchemaQuestionLookup(t *testing.T) {
	d := validDraft()
	s := &Schema{Questions: d.Questions}
	q, ok := s.Question("fld1")
	assert.True(t, ok)
	assert.Equal(t, "Your name", q.Label)
	_, ok = s.Question("nope")
	assert.False(t, ok)
}
