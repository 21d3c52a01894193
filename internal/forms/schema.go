// Package forms holds the form schema model, its validation rules and the
// visibility evaluator used when rendering and submitting a form.
package forms

import (
	"strings"
	"time"

	"github.com/localnerve/airtable-forms/internal/types"
)

// QuestionType is the rendering type of a question
type QuestionType string

const (
	ShortText    QuestionType = "short_text"
	LongText     QuestionType = "long_text"
	SingleSelect QuestionType = "single_select"
	MultiSelect  QuestionType = "multi_select"
	Attachment   QuestionType = "attachment"
)

// Valid reports whether t is one of the known question types
func (t QuestionType) Valid() bool {
	switch t {
	case ShortText, LongText, SingleSelect, MultiSelect, Attachment:
		return true
	}
	return false
}

// IsSelect reports whether the question carries an options list
func (t QuestionType) IsSelect() bool {
	return t == SingleSelect || t == MultiSelect
}

// Operator is a condition comparison operator
type Operator string

const (
	Equals    Operator = "equals"
	NotEquals Operator = "not_equals"
	In        Operator = "in"
	NotIn     Operator = "not_in"
	Contains  Operator = "contains"
)

// Valid reports whether o is an accepted operator. Only Equals is evaluated.
func (o Operator) Valid() bool {
	switch o {
	case Equals, NotEquals, In, NotIn, Contains:
		return true
	}
	return false
}

// TableRef identifies the remote target table
type TableRef struct {
	BaseID    string `json:"baseId"`
	TableID   string `json:"tableId"`
	TableName string `json:"tableName"`
}

// Condition gates the visibility of a question on another question's answer
type Condition struct {
	DependsOnFieldID string           `json:"dependsOnFieldId"`
	Operator         Operator         `json:"operator"`
	Value            types.FlexString `json:"value"`
}

// Question is one form field bound to a remote table field
type Question struct {
	RemoteFieldID   string                    `json:"remoteFieldId"`
	RemoteFieldName string                    `json:"remoteFieldName"`
	Label           string                    `json:"label"`
	Type            QuestionType              `json:"type"`
	Required        bool                      `json:"required"`
	Options         types.FlexList[string]    `json:"options"`
	Conditions      types.FlexList[Condition] `json:"conditions"`
}

// Schema is a stored form definition
type Schema struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Name      string     `json:"name"`
	TableRef  TableRef   `json:"tableRef"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Draft is the caller-supplied part of a schema, everything except id and owner
type Draft struct {
	Name      string     `json:"name"`
	TableRef  TableRef   `json:"tableRef"`
	Questions []Question `json:"questions"`
}

// Question returns the question bound to the given remote field id
func (s *Schema) Question(fieldID string) (Question, bool) {
	for _, q := range s.Questions {
		if q.RemoteFieldID == fieldID {
			return q, true
		}
	}
	return Question{}, false
}

// Validate checks a draft before it is stored. The first problem found is returned
// as a validation error.
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return types.NewValidationError("Form name is required")
	}
	if d.TableRef.BaseID == "" || d.TableRef.TableID == "" {
		return types.NewValidationError("A target base and table are required")
	}
	if len(d.Questions) == 0 {
		return types.NewValidationError("At least one question is required")
	}

	seen := make(map[string]struct{}, len(d.Questions))
	for i, q := range d.Questions {
		if q.RemoteFieldID == "" || q.RemoteFieldName == "" {
			return types.NewValidationError("Question %d is not bound to a table field", i+1)
		}
		if _, dup := seen[q.RemoteFieldID]; dup {
			return types.NewValidationError("Field %q is used by more than one question", q.RemoteFieldName)
		}
		seen[q.RemoteFieldID] = struct{}{}

		if !q.Type.Valid() {
			return types.NewValidationError("Question %q has unsupported type %q", q.RemoteFieldName, q.Type)
		}
		for _, c := range q.Conditions {
			if c.Operator != "" && !c.Operator.Valid() {
				return types.NewValidationError("Question %q has unsupported operator %q", q.RemoteFieldName, c.Operator)
			}
		}
	}

	return nil
}

// Normalize fills defaults in place: blank labels fall back to the field name.
func (d *Draft) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	for i := range d.Questions {
		if strings.TrimSpace(d.Questions[i].Label) == "" {
			d.Questions[i].Label = d.Questions[i].RemoteFieldName
		}
	}
}
