package builder

import (
	"errors"
	"testing"

	"github.com/localnerve/airtable-forms/internal/airtable"
	"github.com/localnerve/airtable-forms/internal/forms"
	"github.com/localnerve/airtable-forms/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	tables []airtable.Table
	err    error
	calls  []string
}

func (f *fakeSource) ListTables(token, baseID string) ([]airtable.Table, error) {
	f.calls = append(f.calls, token+"|"+baseID)
	return f.tables, f.err
}

type fakeStore struct {
	owner  string
	drafts []forms.Draft
	err    error
}

func (f *fakeStore) Create(ownerID string, draft forms.Draft) (*forms.Schema, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.owner = ownerID
	f.drafts = append(f.drafts, draft)
	return &forms.Schema{ID: "form-1", OwnerID: ownerID, Name: draft.Name, TableRef: draft.TableRef, Questions: draft.Questions}, nil
}

func sampleTables() []airtable.Table {
	return []airtable.Table{{
		ID:   "tblA",
		Name: "Applicants",
		Fields: []airtable.Field{
			{ID: "fldName", Name: "Name", Type: "singleLineText"},
			{ID: "fldBio", Name: "Bio", Type: "multilineText"},
			{ID: "fldRole", Name: "Role", Type: "singleSelect", Options: &airtable.FieldOptions{
				Choices: []airtable.Choice{{Name: "Engineer"}, {Name: "Designer"}},
			}},
			{ID: "fldTags", Name: "Tags", Type: "multipleSelects"},
			{ID: "fldCV", Name: "CV", Type: "multipleAttachments"},
			{ID: "fldScore", Name: "Score", Type: "number"},
		},
	}}
}

func readySession(t *testing.T) (*Session, *fakeSource, *fakeStore) {
	t.Helper()
	src := &fakeSource{tables: sampleTables()}
	store := &fakeStore{}
	s := New("owner-1", "patX", src, store)
	require.NoError(t, s.SelectBase("appB"))
	require.NoError(t, s.SelectTable("tblA"))
	return s, src, store
}

func TestQuestionTypeMap(t *testing.T) {
	tests := map[string]forms.QuestionType{
		"singleLineText":      forms.ShortText,
		"multilineText":       forms.LongText,
		"singleSelect":        forms.SingleSelect,
		"multipleSelects":     forms.MultiSelect,
		"multipleAttachments": forms.Attachment,
	}
	for remote, want := range tests {
		got, ok := QuestionType(remote)
		assert.True(t, ok, remote)
		assert.Equal(t, want, got)
	}

	for _, remote := range []string{"number", "checkbox", "date", ""} {
		_, ok := QuestionType(remote)
		assert.False(t, ok, remote)
	}
}

func TestSelectTableFetchesThroughSource(t *testing.T) {
	s, src, _ := readySession(t)
	assert.Equal(t, []string{"patX|appB"}, src.calls)
	assert.Len(t, s.Tables(), 1)
}

func TestSelectTableRequiresBase(t *testing.T) {
	s := New("owner-1", "patX", &fakeSource{tables: sampleTables()}, &fakeStore{})
	err := s.SelectTable("tblA")
	assert.True(t, types.IsType(err, types.TypeValidation))
}

func TestSelectTableUnknown(t *testing.T) {
	s := New("owner-1", "patX", &fakeSource{tables: sampleTables()}, &fakeStore{})
	require.NoError(t, s.SelectBase("appB"))
	err := s.SelectTable("tblMissing")
	assert.True(t, types.IsType(err, types.TypeNotFound))
}

func TestSelectTableSurfacesRemoteError(t *testing.T) {
	remote := types.NewRemoteError(403, []byte(`{"error":"NOT_AUTHORIZED"}`))
	s := New("owner-1", "patX", &fakeSource{err: remote}, &fakeStore{})
	require.NoError(t, s.SelectBase("appB"))
	assert.Equal(t, remote, s.SelectTable("tblA"))
}

func TestSelectableFieldsExcludesUnmappedTypes(t *testing.T) {
	s, _, _ := readySession(t)

	var ids []string
	for _, f := range s.SelectableFields() {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"fldName", "fldBio", "fldRole", "fldTags", "fldCV"}, ids)
}

func TestToggleFieldProjectsQuestion(t *testing.T) {
	s, _, _ := readySession(t)

	selected, err := s.ToggleField("fldRole")
	require.NoError(t, err)
	assert.True(t, selected)

	qs := s.Questions()
	require.Len(t, qs, 1)
	assert.Equal(t, "fldRole", qs[0].RemoteFieldID)
	assert.Equal(t, "Role", qs[0].RemoteFieldName)
	assert.Equal(t, "Role", qs[0].Label)
	assert.Equal(t, forms.SingleSelect, qs[0].Type)
	assert.False(t, qs[0].Required)
	assert.Equal(t, []string{"Engineer", "Designer"}, qs[0].Options.Slice())
	assert.Empty(t, qs[0].Conditions)
}

func TestToggleFieldRemovesExisting(t *testing.T) {
	s, _, _ := readySession(t)
	_, _ = s.ToggleField("fldName")
	_, _ = s.ToggleField("fldBio")

	selected, err := s.ToggleField("fldName")
	require.NoError(t, err)
	assert.False(t, selected)

	qs := s.Questions()
	require.Len(t, qs, 1)
	assert.Equal(t, "fldBio", qs[0].RemoteFieldID)
}

func TestToggleFieldIgnoresUnmappedType(t *testing.T) {
	s, _, _ := readySession(t)
	selected, err := s.ToggleField("fldScore")
	require.NoError(t, err)
	assert.False(t, selected)
	assert.Empty(t, s.Questions())
}

func TestEditQuestion(t *testing.T) {
	s, _, _ := readySession(t)
	_, _ = s.ToggleField("fldRole")
	_, _ = s.ToggleField("fldBio")

	label := "Tell us about yourself"
	required := true
	conds := []forms.Condition{{DependsOnFieldID: "fldRole", Operator: forms.Equals, Value: "Engineer"}}
	require.NoError(t, s.EditQuestion(1, Patch{Label: &label, Required: &required, Conditions: &conds}))

	qs := s.Questions()
	assert.Equal(t, label, qs[1].Label)
	assert.True(t, qs[1].Required)
	assert.Equal(t, conds, qs[1].Conditions.Slice())
	assert.Equal(t, "Role", qs[0].Label)

	err := s.EditQuestion(5, Patch{Label: &label})
	assert.True(t, types.IsType(err, types.TypeValidation))
}

func TestChangingBaseClearsSelection(t *testing.T) {
	s, _, _ := readySession(t)
	_, _ = s.ToggleField("fldName")
	require.NoError(t, s.SelectBase("appOther"))
	assert.Empty(t, s.Questions())
	assert.Nil(t, s.SelectableFields())
}

func TestSaveValidates(t *testing.T) {
	s := New("owner-1", "patX", &fakeSource{tables: sampleTables()}, &fakeStore{})
	require.NoError(t, s.SetName("  "))
	_, err := s.Save()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please enter a form name")

	require.NoError(t, s.SetName("Signup"))
	_, err = s.Save()
	assert.Contains(t, err.Error(), "Please select a base and table")

	require.NoError(t, s.SelectBase("appB"))
	require.NoError(t, s.SelectTable("tblA"))
	_, err = s.Save()
	assert.Contains(t, err.Error(), "Please add at least one question")
	assert.False(t, s.Closed())
}

func TestSaveCreatesAndCloses(t *testing.T) {
	s, _, store := readySession(t)
	require.NoError(t, s.SetName("Signup"))
	_, _ = s.ToggleField("fldName")
	_, _ = s.ToggleField("fldCV")

	schema, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, "form-1", schema.ID)
	assert.Equal(t, "owner-1", store.owner)
	require.Len(t, store.drafts, 1)
	assert.Equal(t, forms.TableRef{BaseID: "appB", TableID: "tblA", TableName: "Applicants"}, store.drafts[0].TableRef)
	assert.Len(t, store.drafts[0].Questions, 2)

	assert.True(t, s.Closed())
	_, err = s.ToggleField("fldBio")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Save()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSaveFailureKeepsSession(t *testing.T) {
	s, _, store := readySession(t)
	store.err = errors.New("boom")
	_, _ = s.ToggleField("fldName")

	_, err := s.Save()
	require.Error(t, err)
	assert.False(t, s.Closed())
	assert.Len(t, s.Questions(), 1)
}
