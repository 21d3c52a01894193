package services

import (
	"context"
	"log"

	"github.com/localnerve/airtable-forms/internal/forms"
	"github.com/localnerve/airtable-forms/internal/models"
	"github.com/localnerve/airtable-forms/internal/storage"
	"github.com/localnerve/airtable-forms/internal/types"
	"gorm.io/gorm"
)

// SubmissionInput is one respondent submission: answers keyed by remote field
// id, plus files selected for attachment questions keyed the same way.
type SubmissionInput struct {
	Answers forms.Answers
	Files   map[string][]Attachment
}

// SubmissionResult is the outcome of a successful submission
type SubmissionResult struct {
	SubmissionID string                 `json:"submissionId"`
	State        string                 `json:"state"`
	Record       map[string]interface{} `json:"record"`
}

// SubmissionPipeline turns answers into exactly one remote record
type SubmissionPipeline struct {
	DB      *gorm.DB
	Gateway RemoteGateway
	Uploads *UploadService
}

// Submit runs one attempt through validating, uploading and posting. Nothing is
// uploaded or posted when validation fails. Uploads are staged and only
// committed once the record exists.
func (p *SubmissionPipeline) Submit(ctx context.Context, schema *forms.Schema, in SubmissionInput) (*SubmissionResult, error) {
	answers := in.Answers
	if answers == nil {
		answers = forms.Answers{}
	}

	attempt := &models.Submission{FormID: schema.ID, State: models.SubmissionIdle}
	p.record(attempt, models.SubmissionValidating, nil)

	visible, err := validate(schema, answers, in.Files)
	if err != nil {
		return nil, p.fail(attempt, err)
	}

	owner, err := GetUser(p.DB, schema.OwnerID)
	if err != nil {
		if types.IsType(err, types.TypeNotFound) {
			err = types.NewNotFoundError("Form owner not found")
		}
		return nil, p.fail(attempt, err)
	}

	fields := make(map[string]interface{}, len(visible))
	var committed []string

	for _, q := range visible {
		if q.Type != forms.Attachment {
			fields[q.RemoteFieldName] = outgoingValue(q, answers[q.RemoteFieldID])
		}
	}

	for _, q := range visible {
		if q.Type != forms.Attachment {
			continue
		}
		refs := forms.AttachmentRefs(answers[q.RemoteFieldID])
		if files := in.Files[q.RemoteFieldID]; len(files) > 0 {
			if attempt.State != models.SubmissionUploading {
				p.record(attempt, models.SubmissionUploading, nil)
			}
			uploaded, err := p.stage(ctx, files)
			if err != nil {
				return nil, p.fail(attempt, err)
			}
			for _, u := range uploaded {
				refs = append(refs, forms.AttachmentRef{URL: u.URL})
			}
		}
		if len(refs) == 0 {
			continue
		}
		for _, r := range refs {
			committed = append(committed, r.URL)
		}
		fields[q.RemoteFieldName] = refs
	}

	p.record(attempt, models.SubmissionPosting, nil)

	table := schema.TableRef.TableName
	if table == "" {
		table = schema.TableRef.TableID
	}
	rec, err := p.Gateway.CreateRecord(owner.AccessToken, schema.TableRef.BaseID, table, fields)
	if err != nil {
		return nil, p.fail(attempt, err)
	}

	if p.Uploads != nil {
		if err := p.Uploads.Commit(committed); err != nil {
			log.Printf("Submission %s: failed to commit uploads: %v", attempt.ID, err)
		}
	}

	attempt.RecordID = rec.ID
	attempt.Fields = len(fields)
	p.record(attempt, models.SubmissionSubmitted, nil)

	return &SubmissionResult{
		SubmissionID: attempt.ID,
		State:        attempt.State,
		Record: map[string]interface{}{
			"id":          rec.ID,
			"createdTime": rec.CreatedTime,
			"fields":      rec.Fields,
		},
	}, nil
}

// validate returns the visible questions in schema order, or a validation
// error naming the first visible required question left empty.
func validate(schema *forms.Schema, answers forms.Answers, files map[string][]Attachment) ([]forms.Question, error) {
	visible := forms.VisibleQuestions(schema, answers)
	for _, q := range visible {
		if !q.Required {
			continue
		}
		var empty bool
		if q.Type == forms.Attachment {
			empty = len(files[q.RemoteFieldID]) == 0 && len(forms.AttachmentRefs(answers[q.RemoteFieldID])) == 0
		} else {
			empty = forms.IsEmpty(answers[q.RemoteFieldID])
		}
		if empty {
			return nil, types.NewValidationError("Please fill in the required field: %s", q.Label)
		}
	}
	return visible, nil
}

func outgoingValue(q forms.Question, answer interface{}) interface{} {
	if q.Type == forms.MultiSelect {
		return forms.StringList(answer)
	}
	return forms.ScalarValue(answer)
}

func (p *SubmissionPipeline) stage(ctx context.Context, files []Attachment) ([]storage.UploadResult, error) {
	if p.Uploads == nil {
		return nil, uploadError(storage.ErrNotConfigured)
	}
	return p.Uploads.Stage(ctx, files, "")
}

func (p *SubmissionPipeline) fail(attempt *models.Submission, err error) error {
	p.record(attempt, models.SubmissionFailed, err)
	return err
}

// record moves the attempt to state and persists it. Audit writes never fail
// the submission.
func (p *SubmissionPipeline) record(attempt *models.Submission, state string, cause error) {
	attempt.State = state
	if cause != nil {
		attempt.Error = cause.Error()
	}

	var err error
	if attempt.ID == "" {
		err = p.DB.Create(attempt).Error
	} else {
		err = p.DB.Save(attempt).Error
	}
	if err != nil {
		log.Printf("Submission audit (%s -> %s) not recorded: %v", attempt.FormID, state, err)
	}
}
