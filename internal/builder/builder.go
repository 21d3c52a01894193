// Package builder composes a form schema from a remote table before it is
// saved. A Session is transient; nothing is persisted until Save succeeds,
// after which the session is closed.
package builder

import (
	"errors"
	"strings"

	"github.com/localnerve/airtable-forms/internal/airtable"
	"github.com/localnerve/airtable-forms/internal/forms"
	"github.com/localnerve/airtable-forms/internal/types"
)

// DefaultName is the name of a fresh session
const DefaultName = "Untitled Form"

// ErrClosed is returned by every mutation after a successful Save
var ErrClosed = errors.New("builder session is closed")

var typeMap = map[string]forms.QuestionType{
	"singleLineText":      forms.ShortText,
	"multilineText":       forms.LongText,
	"singleSelect":        forms.SingleSelect,
	"multipleSelects":     forms.MultiSelect,
	"multipleAttachments": forms.Attachment,
}

// QuestionType maps a remote field type to a question type.
// Unmapped types report false and cannot be selected.
func QuestionType(remoteType string) (forms.QuestionType, bool) {
	t, ok := typeMap[remoteType]
	return t, ok
}

// TableSource fetches the tables of a base
type TableSource interface {
	ListTables(token, baseID string) ([]airtable.Table, error)
}

// Store persists a finished draft
type Store interface {
	Create(ownerID string, draft forms.Draft) (*forms.Schema, error)
}

// Patch edits a question in place. Nil members are left unchanged.
type Patch struct {
	Label      *string            `json:"label,omitempty"`
	Required   *bool              `json:"required,omitempty"`
	Conditions *[]forms.Condition `json:"conditions,omitempty"`
}

// Session holds the in-progress schema of one owner
type Session struct {
	ownerID string
	token   string
	source  TableSource
	store   Store

	name      string
	baseID    string
	tables    []airtable.Table
	table     *airtable.Table
	questions []forms.Question
	closed    bool
}

// New starts a session for ownerID, fetching tables with the owner's token
func New(ownerID, token string, source TableSource, store Store) *Session {
	return &Session{
		ownerID: ownerID,
		token:   token,
		source:  source,
		store:   store,
		name:    DefaultName,
	}
}

// SelectBase chooses the base. Changing it clears the table and questions.
func (s *Session) SelectBase(baseID string) error {
	if s.closed {
		return ErrClosed
	}
	if baseID != s.baseID {
		s.tables = nil
		s.table = nil
		s.questions = nil
	}
	s.baseID = baseID
	return nil
}

// SelectTable fetches the tables of the selected base and chooses one.
// Changing the table clears the questions.
func (s *Session) SelectTable(tableID string) error {
	if s.closed {
		return ErrClosed
	}
	if s.baseID == "" {
		return types.NewValidationError("Please select a base and table")
	}

	tables, err := s.source.ListTables(s.token, s.baseID)
	if err != nil {
		return err
	}
	s.tables = tables

	for i := range tables {
		if tables[i].ID == tableID {
			if s.table == nil || s.table.ID != tableID {
				s.questions = nil
			}
			s.table = &tables[i]
			return nil
		}
	}
	return types.NewNotFoundError("Table %s not found in base %s", tableID, s.baseID)
}

// Tables returns the tables fetched for the selected base
func (s *Session) Tables() []airtable.Table {
	return s.tables
}

// SelectableFields returns the fields of the selected table with a mapped type
func (s *Session) SelectableFields() []airtable.Field {
	if s.table == nil {
		return nil
	}
	var fields []airtable.Field
	for _, f := range s.table.Fields {
		if _, ok := QuestionType(f.Type); ok {
			fields = append(fields, f)
		}
	}
	return fields
}

// ToggleField adds a question projected from the field, or removes it when
// already present. It reports whether the field is selected afterwards.
// Fields with an unmapped type are ignored.
func (s *Session) ToggleField(fieldID string) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	if s.table == nil {
		return false, types.NewValidationError("Please select a base and table")
	}

	for i, q := range s.questions {
		if q.RemoteFieldID == fieldID {
			s.questions = append(s.questions[:i:i], s.questions[i+1:]...)
			return false, nil
		}
	}

	field, ok := s.table.Field(fieldID)
	if !ok {
		return false, types.NewNotFoundError("Field %s not found in table %s", fieldID, s.table.Name)
	}
	qt, ok := QuestionType(field.Type)
	if !ok {
		return false, nil
	}

	s.questions = append(s.questions, forms.Question{
		RemoteFieldID:   field.ID,
		RemoteFieldName: field.Name,
		Label:           field.Name,
		Type:            qt,
		Options:         field.ChoiceNames(),
	})
	return true, nil
}

// EditQuestion applies patch to the question at index
func (s *Session) EditQuestion(index int, patch Patch) error {
	if s.closed {
		return ErrClosed
	}
	if index < 0 || index >= len(s.questions) {
		return types.NewValidationError("Question %d does not exist", index+1)
	}

	q := &s.questions[index]
	if patch.Label != nil {
		q.Label = *patch.Label
	}
	if patch.Required != nil {
		q.Required = *patch.Required
	}
	if patch.Conditions != nil {
		q.Conditions = append(types.FlexList[forms.Condition]{}, (*patch.Conditions)...)
	}
	return nil
}

// SetName sets the form name
func (s *Session) SetName(name string) error {
	if s.closed {
		return ErrClosed
	}
	s.name = name
	return nil
}

// Questions returns a copy of the current questions
func (s *Session) Questions() []forms.Question {
	return append([]forms.Question(nil), s.questions...)
}

// Draft returns the schema as it would be saved
func (s *Session) Draft() forms.Draft {
	d := forms.Draft{
		Name:      s.name,
		Questions: s.Questions(),
	}
	if s.table != nil {
		d.TableRef = forms.TableRef{BaseID: s.baseID, TableID: s.table.ID, TableName: s.table.Name}
	}
	return d
}

// Save validates the draft and stores it. The session is closed on success.
func (s *Session) Save() (*forms.Schema, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if strings.TrimSpace(s.name) == "" {
		return nil, types.NewValidationError("Please enter a form name")
	}
	if s.baseID == "" || s.table == nil {
		return nil, types.NewValidationError("Please select a base and table")
	}
	if len(s.questions) == 0 {
		return nil, types.NewValidationError("Please add at least one question")
	}

	schema, err := s.store.Create(s.ownerID, s.Draft())
	if err != nil {
		return nil, err
	}

	s.closed = true
	s.questions = nil
	s.tables = nil
	return schema, nil
}

// Closed reports whether the session has been saved
func (s *Session) Closed() bool {
	return s.closed
}
