package services

import (
	"context"
	"testing"

	"github.com/localnerve/airtable-forms/internal/forms"
	"github.com/localnerve/airtable-forms/internal/models"
	"github.com/localnerve/airtable-forms/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipelineFixture struct {
	pipeline *SubmissionPipeline
	gateway  *fakeGateway
	uploader *fakeUploader
	schema   *forms.Schema
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	db := newTestDB(t)
	owner := seedUser(t, db, "patOwner")

	store := &FormStore{DB: db}
	schema, err := store.Create(owner.ID, sampleDraft("Signup"))
	require.NoError(t, err)

	gw := &fakeGateway{}
	up := &fakeUploader{}
	return &pipelineFixture{
		pipeline: &SubmissionPipeline{
			DB:      db,
			Gateway: gw,
			Uploads: &UploadService{DB: db, Uploader: up, Folder: "air-form-uploads"},
		},
		gateway:  gw,
		uploader: up,
		schema:   schema,
	}
}

func (f *pipelineFixture) submit(t *testing.T, in SubmissionInput) (*SubmissionResult, error) {
	t.Helper()
	return f.pipeline.Submit(context.Background(), f.schema, in)
}

func TestSubmitHiddenQuestionExcluded(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.submit(t, SubmissionInput{Answers: forms.Answers{
		"fldRole": "No",
		"fldWhy":  "stale answer",
	}})
	require.NoError(t, err)

	require.Len(t, f.gateway.created, 1)
	fields := f.gateway.created[0].Fields
	assert.Equal(t, "No", fields["Role"])
	assert.NotContains(t, fields, "Why")
}

func TestSubmitVisibleConditionalIncluded(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.submit(t, SubmissionInput{Answers: forms.Answers{
		"fldRole": "Yes",
		"fldWhy":  "Because",
	}})
	require.NoError(t, err)

	require.Len(t, f.gateway.created, 1)
	assert.Equal(t, "Because", f.gateway.created[0].Fields["Why"])
}

func TestSubmitRequiredEmptyFails(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.submit(t, SubmissionInput{
		Answers: forms.Answers{"fldRole": ""},
		Files:   map[string][]Attachment{"fldCV": {{Filename: "cv.pdf", Data: []byte("x")}}},
	})
	require.Error(t, err)
	assert.True(t, types.IsType(err, types.TypeValidation))
	assert.Contains(t, err.Error(), "Please fill in the required field: Role")

	assert.Empty(t, f.gateway.created, "no remote record")
	assert.Empty(t, f.uploader.uploads, "no uploads")

	var attempt models.Submission
	require.NoError(t, f.pipeline.DB.First(&attempt).Error)
	assert.Equal(t, models.SubmissionFailed, attempt.State)
	assert.Contains(t, attempt.Error, "Role")
}

func TestSubmitAttachmentsOneUploadPerFile(t *testing.T) {
	f := newPipelineFixture(t)

	res, err := f.submit(t, SubmissionInput{
		Answers: forms.Answers{"fldRole": "No"},
		Files: map[string][]Attachment{"fldCV": {
			{Filename: "cv.pdf", Data: []byte("one")},
			{Filename: "letter.docx", Data: []byte("two")},
		}},
	})
	require.NoError(t, err)
	assert.Len(t, f.uploader.uploads, 2)

	refs, ok := f.gateway.created[0].Fields["CV"].([]forms.AttachmentRef)
	require.True(t, ok)
	require.Len(t, refs, 2)
	assert.Regexp(t, `^https://files\.example\.com/air-form-uploads/cv_[0-9a-f]{12}$`, refs[0].URL)
	assert.Regexp(t, `^https://files\.example\.com/air-form-uploads/letter_[0-9a-f]{12}$`, refs[1].URL)

	var staged []models.StagedUpload
	require.NoError(t, f.pipeline.DB.Find(&staged).Error)
	require.Len(t, staged, 2)
	for _, s := range staged {
		assert.True(t, s.Committed)
	}

	assert.Equal(t, models.SubmissionSubmitted, res.State)
	assert.Equal(t, "rec1", res.Record["id"])
}

func TestSubmitPreUploadedRefs(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.submit(t, SubmissionInput{Answers: forms.Answers{
		"fldRole": "No",
		"fldCV":   []interface{}{map[string]interface{}{"url": "https://files.example.com/a"}},
	}})
	require.NoError(t, err)
	assert.Empty(t, f.uploader.uploads)
	assert.Equal(t, []forms.AttachmentRef{{URL: "https://files.example.com/a"}}, f.gateway.created[0].Fields["CV"])
}

func TestSubmitValueShapes(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.submit(t, SubmissionInput{Answers: forms.Answers{
		"fldRole": "Yes",
		"fldTags": []interface{}{"a", "c"},
	}})
	require.NoError(t, err)

	call := f.gateway.created[0]
	assert.Equal(t, "patOwner", call.Token)
	assert.Equal(t, "appB", call.BaseID)
	assert.Equal(t, "Applicants", call.Table)
	assert.Equal(t, map[string]interface{}{
		"Role": "Yes",
		"Why":  "",
		"Tags": []string{"a", "c"},
	}, call.Fields)
}

func TestSubmitUsesTableIDWithoutName(t *testing.T) {
	f := newPipelineFixture(t)
	f.schema.TableRef.TableName = ""

	_, err := f.submit(t, SubmissionInput{Answers: forms.Answers{"fldRole": "No"}})
	require.NoError(t, err)
	assert.Equal(t, "tblA", f.gateway.created[0].Table)
}

func TestSubmitRemoteFailureSurfaced(t *testing.T) {
	f := newPipelineFixture(t)
	f.gateway.err = types.NewRemoteError(422, []byte(`{"error":{"type":"INVALID_VALUE_FOR_COLUMN"}}`))

	_, err := f.submit(t, SubmissionInput{
		Answers: forms.Answers{"fldRole": "No"},
		Files:   map[string][]Attachment{"fldCV": {{Filename: "cv.pdf"}}},
	})
	require.Error(t, err)

	var ce *types.CustomError
	require.ErrorAs(t, err, &ce)
	assert.JSONEq(t, `{"error":{"type":"INVALID_VALUE_FOR_COLUMN"}}`, string(ce.Detail))

	var staged models.StagedUpload
	require.NoError(t, f.pipeline.DB.First(&staged).Error)
	assert.False(t, staged.Committed, "left for the sweeper")
}

func TestSubmitOwnerMissing(t *testing.T) {
	f := newPipelineFixture(t)
	f.schema.OwnerID = "gone"

	_, err := f.submit(t, SubmissionInput{Answers: forms.Answers{"fldRole": "No"}})
	assert.True(t, types.IsType(err, types.TypeNotFound))
	assert.Empty(t, f.gateway.created)
}

func TestSubmitRecordsAudit(t *testing.T) {
	f := newPipelineFixture(t)

	res, err := f.submit(t, SubmissionInput{Answers: forms.Answers{"fldRole": "No"}})
	require.NoError(t, err)

	var attempt models.Submission
	require.NoError(t, f.pipeline.DB.Where("id = ?", res.SubmissionID).First(&attempt).Error)
	assert.Equal(t, models.SubmissionSubmitted, attempt.State)
	assert.Equal(t, "rec1", attempt.RecordID)
	assert.Equal(t, f.schema.ID, attempt.FormID)
	assert.Equal(t, 2, attempt.Fields)
}
