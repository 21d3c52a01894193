package services

import (
	"errors"

	"github.com/localnerve/airtable-forms/internal/forms"
	"github.com/localnerve/airtable-forms/internal/models"
	"github.com/localnerve/airtable-forms/internal/types"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// FormStore persists form schemas
type FormStore struct {
	DB *gorm.DB
}

// Create validates and stores a new schema for the owner
func (s *FormStore) Create(ownerID string, draft forms.Draft) (*forms.Schema, error) {
	if ownerID == "" {
		return nil, types.NewAuthError("Unauthorized")
	}

	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	row, err := models.NewForm(ownerID, draft)
	if err != nil {
		return nil, types.NewValidationError("Invalid questions: %v", err)
	}
	if err := s.DB.Create(row).Error; err != nil {
		return nil, types.NewPersistenceError(err)
	}

	return row.Schema()
}

// ListByOwner returns the owner's schemas, newest first
func (s *FormStore) ListByOwner(ownerID string) ([]*forms.Schema, error) {
	var rows []models.Form
	err := s.DB.Clauses(hints.CommentBefore("select", "forms.list_by_owner")).
		Where("owner_user_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, types.NewPersistenceError(err)
	}

	result := make([]*forms.Schema, 0, len(rows))
	for i := range rows {
		schema, err := rows[i].Schema()
		if err != nil {
			return nil, types.NewPersistenceError(err)
		}
		result = append(result, schema)
	}
	return result, nil
}

// GetByID loads a schema. Reads are not restricted to the owner.
func (s *FormStore) GetByID(id string) (*forms.Schema, error) {
	row, err := s.find(id)
	if err != nil {
		return nil, err
	}
	schema, err := row.Schema()
	if err != nil {
		return nil, types.NewPersistenceError(err)
	}
	return schema, nil
}

// Update replaces the name and questions of an owned schema. The target table
// cannot change; other owners see the schema as missing.
func (s *FormStore) Update(ownerID, id string, draft forms.Draft) (*forms.Schema, error) {
	row, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if row.OwnerUserID != ownerID {
		return nil, types.NewNotFoundError("Not found")
	}

	current := forms.TableRef{BaseID: row.BaseID, TableID: row.TableID, TableName: row.RemoteTableName}
	if draft.TableRef == (forms.TableRef{}) {
		draft.TableRef = current
	} else if draft.TableRef.BaseID != current.BaseID || draft.TableRef.TableID != current.TableID {
		return nil, types.NewValidationError("The target table of a form cannot be changed")
	}
	draft.TableRef.TableName = current.TableName

	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	row.Name = draft.Name
	if err := row.SetQuestions(draft.Questions); err != nil {
		return nil, types.NewValidationError("Invalid questions: %v", err)
	}
	if err := s.DB.Model(row).Select("name", "questions", "updated_at").Updates(row).Error; err != nil {
		return nil, types.NewPersistenceError(err)
	}

	return row.Schema()
}

func (s *FormStore) find(id string) (*models.Form, error) {
	var row models.Form
	err := s.DB.Clauses(hints.CommentBefore("select", "forms.get_by_id")).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewNotFoundError("Not found")
		}
		return nil, types.NewPersistenceError(err)
	}
	return &row, nil
}
