// upload.go
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
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/airtable-forms/internal/services"
	"github.com/localnerve/airtable-forms/internal/storage"
	"github.com/localnerve/airtable-forms/internal/types"
)

// UploadHandler stages attachment files
type UploadHandler struct {
	Uploads *services.UploadService
}

// UploadResponse lists the stored files
type UploadResponse struct {
	Files []storage.UploadResult `json:"files"`
}

// UploadAttachments handles POST /api/upload/attachments
// @Summary Upload attachment files
// @Description Multipart "files", at most 10. Files stay staged until a submission references them.
// @Tags Upload
// @Accept mpfd
// @Produce json
// @Param folder query string false "Target folder"
// @Param files formData file true "Files"
// @Success 200 {object} UploadResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 503 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /upload/attachments [post]
func (h *UploadHandler) UploadAttachments(c *fiber.Ctx) error {
	var headers []*multipart.FileHeader
	if isMultipart(c) {
		mf, err := c.MultipartForm()
		if err != nil {
			return types.NewValidationError("Invalid multipart upload: %v", err)
		}
		headers = mf.File["files"]
	}

	files, err := readFiles(headers)
	if err != nil {
		return types.NewValidationError("%v", err)
	}

	results, err := h.Uploads.Stage(c.UserContext(), files, c.Query("folder"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(UploadResponse{Files: results})
}
