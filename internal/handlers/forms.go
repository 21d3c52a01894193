// forms.go
//
// Build Airtable-backed forms and proxy anonymous submissions into Airtable tables
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of airtable-forms.
// airtable-forms is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// airtable-forms is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with airtable-forms.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/airtable-forms/internal/builder"
	"github.com/localnerve/airtable-forms/internal/forms"
	"github.com/localnerve/airtable-forms/internal/middleware"
	"github.com/localnerve/airtable-forms/internal/services"
	"github.com/localnerve/airtable-forms/internal/types"
	"gorm.io/gorm"
)

// FormsHandler handles form schema and submission routes
type FormsHandler struct {
	DB       *gorm.DB
	Store    *services.FormStore
	Gateway  services.RemoteGateway
	Pipeline *services.SubmissionPipeline
}

// BuildField selects one remote field and optionally edits the resulting question
type BuildField struct {
	FieldID string `json:"fieldId"`
	builder.Patch
}

// BuildRequest composes a form from a remote table in one call
type BuildRequest struct {
	Name    string       `json:"name"`
	BaseID  string       `json:"baseId"`
	TableID string       `json:"tableId"`
	Fields  []BuildField `json:"fields"`
}

// SubmitRequest is the JSON submission body, answers keyed by remote field id
type SubmitRequest struct {
	Fields map[string]interface{} `json:"fields"`
}

// SubmitResponse acknowledges a created record
type SubmitResponse struct {
	Ok           bool                   `json:"ok"`
	SubmissionID string                 `json:"submissionId"`
	Record       map[string]interface{} `json:"record"`
}

// CreateForm handles POST /api/forms
// @Summary Create a form
// @Tags Forms
// @Accept json
// @Produce json
// @Param body body forms.Draft true "Form definition"
// @Success 201 {object} forms.Schema
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /forms [post]
func (h *FormsHandler) CreateForm(c *fiber.Ctx) error {
	var draft forms.Draft
	if err := c.BodyParser(&draft); err != nil {
		return types.NewValidationError("Invalid form definition: %v", err)
	}
	ownerID, err := persistedOwner(c)
	if err != nil {
		return err
	}

	schema, err := h.Store.Create(ownerID, draft)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(schema)
}

// ListForms handles GET /api/forms
// @Summary List own forms, newest first
// @Tags Forms
// @Produce json
// @Success 200 {array} forms.Schema
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /forms [get]
func (h *FormsHandler) ListForms(c *fiber.Ctx) error {
	list, err := h.Store.ListByOwner(middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(list)
}

// BuildForm handles POST /api/forms/build
// @Summary Build and save a form from a remote table
// @Description Fetches the table's fields, selects the requested ones, applies label, required and condition edits, then saves.
// @Tags Forms
// @Accept json
// @Produce json
// @Param body body BuildRequest true "Build request"
// @Success 201 {object} forms.Schema
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /forms/build [post]
func (h *FormsHandler) BuildForm(c *fiber.Ctx) error {
	var req BuildRequest
	if err := c.BodyParser(&req); err != nil {
		return types.NewValidationError("Invalid build request: %v", err)
	}

	token, err := ownerToken(h.DB, c)
	if err != nil {
		return err
	}

	session := builder.New(middleware.UserID(c), token, h.Gateway, h.Store)
	if req.Name != "" {
		if err := session.SetName(req.Name); err != nil {
			return err
		}
	}
	if err := session.SelectBase(req.BaseID); err != nil {
		return err
	}
	if req.BaseID == "" || req.TableID == "" {
		return types.NewValidationError("Please select a base and table")
	}
	if err := session.SelectTable(req.TableID); err != nil {
		return err
	}

	for _, f := range req.Fields {
		selected, err := session.ToggleField(f.FieldID)
		if err != nil {
			return err
		}
		if !selected {
			continue
		}
		if err := session.EditQuestion(len(session.Questions())-1, f.Patch); err != nil {
			return err
		}
	}

	schema, err := session.Save()
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(schema)
}

// GetForm handles GET /api/forms/:id
// @Summary Get a form
// @Description Public, respondents load forms by id.
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} forms.Schema
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /forms/{id} [get]
func (h *FormsHandler) GetForm(c *fiber.Ctx) error {
	schema, err := h.Store.GetByID(c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(schema)
}

// UpdateForm handles PUT /api/forms/:id
// @Summary Update an owned form
// @Description Replaces name and questions. The target table cannot change.
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param body body forms.Draft true "Form definition"
// @Success 200 {object} forms.Schema
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /forms/{id} [put]
func (h *FormsHandler) UpdateForm(c *fiber.Ctx) error {
	var draft forms.Draft
	if err := c.BodyParser(&draft); err != nil {
		return types.NewValidationError("Invalid form definition: %v", err)
	}
	ownerID, err := persistedOwner(c)
	if err != nil {
		return err
	}

	schema, err := h.Store.Update(ownerID, c.Params("id"), draft)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(schema)
}

// SubmitForm handles POST /api/forms/:id/submit
// @Summary Submit answers
// @Description Public. JSON body {fields}, or multipart with a "fields" JSON part and files under attachments[<fieldId>].
// @Tags Forms
// @Accept json,mpfd
// @Produce json
// @Param id path string true "Form ID"
// @Param body body SubmitRequest false "Answers keyed by remote field id"
// @Success 200 {object} SubmitResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /forms/{id}/submit [post]
func (h *FormsHandler) SubmitForm(c *fiber.Ctx) error {
	schema, err := h.Store.GetByID(c.Params("id"))
	if err != nil {
		return err
	}

	in, err := parseSubmission(c)
	if err != nil {
		return err
	}

	res, err := h.Pipeline.Submit(c.UserContext(), schema, in)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(SubmitResponse{
		Ok:           true,
		SubmissionID: res.SubmissionID,
		Record:       res.Record,
	})
}

func parseSubmission(c *fiber.Ctx) (services.SubmissionInput, error) {
	in := services.SubmissionInput{Answers: forms.Answers{}}

	if !isMultipart(c) {
		var req SubmitRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return in, types.NewValidationError("Invalid submission: %v", err)
			}
		}
		for k, v := range req.Fields {
			in.Answers[k] = v
		}
		return in, nil
	}

	mf, err := c.MultipartForm()
	if err != nil {
		return in, types.NewValidationError("Invalid multipart submission: %v", err)
	}

	if vals := mf.Value["fields"]; len(vals) > 0 {
		fields, err := decodeFields(vals[0])
		if err != nil {
			return in, err
		}
		for k, v := range fields {
			in.Answers[k] = v
		}
	}

	for key, headers := range mf.File {
		fieldID, ok := attachmentKey(key)
		if !ok || len(headers) == 0 {
			continue
		}
		files, err := readFiles(headers)
		if err != nil {
			return in, types.NewValidationError("%v", err)
		}
		if in.Files == nil {
			in.Files = map[string][]services.Attachment{}
		}
		in.Files[fieldID] = files
	}

	return in, nil
}
