package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/airtable-forms/internal/forms"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Form is the persisted form schema. Questions are kept as one JSON document
// so their order and nested conditions round-trip untouched.
type Form struct {
	ID              string `gorm:"primaryKey;type:char(36)"`
	OwnerUserID     string `gorm:"type:char(36);not null;index:idx_forms_owner_created,priority:1"`
	Name            string `gorm:"size:255;not null"`
	BaseID          string `gorm:"size:64;not null"`
	TableID         string `gorm:"size:64;not null"`
	RemoteTableName string `gorm:"size:255"`
	Questions       JSON
	CreatedAt       time.Time `gorm:"index:idx_forms_owner_created,priority:2"`
	UpdatedAt       time.Time
}

// TableName overrides the table name for Form
func (Form) TableName() string {
	return "forms"
}

// BeforeCreate assigns a generated identifier
func (f *Form) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// NewForm builds a row from a validated draft
func NewForm(ownerID string, d forms.Draft) (*Form, error) {
	f := &Form{
		OwnerUserID:     ownerID,
		Name:            d.Name,
		BaseID:          d.TableRef.BaseID,
		TableID:         d.TableRef.TableID,
		RemoteTableName: d.TableRef.TableName,
	}
	if err := f.SetQuestions(d.Questions); err != nil {
		return nil, err
	}
	return f, nil
}

// SetQuestions replaces the stored question list
func (f *Form) SetQuestions(questions []forms.Question) error {
	if questions == nil {
		questions = []forms.Question{}
	}
	b, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("failed to encode questions: %w", err)
	}
	f.Questions = JSON{JSON: datatypes.JSON(b)}
	return nil
}

// Schema converts the row to the domain schema
func (f *Form) Schema() (*forms.Schema, error) {
	s := &forms.Schema{
		ID:      f.ID,
		OwnerID: f.OwnerUserID,
		Name:    f.Name,
		TableRef: forms.TableRef{
			BaseID:    f.BaseID,
			TableID:   f.TableID,
			TableName: f.RemoteTableName,
		},
		Questions: []forms.Question{},
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	if len(f.Questions.JSON) > 0 {
		if err := json.Unmarshal(f.Questions.JSON, &s.Questions); err != nil {
			return nil, fmt.Errorf("failed to decode questions of form %s: %w", f.ID, err)
		}
	}
	return s, nil
}
