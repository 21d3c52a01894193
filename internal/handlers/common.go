// common.go
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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/airtable-forms/internal/middleware"
	"github.com/localnerve/airtable-forms/internal/services"
	"github.com/localnerve/airtable-forms/internal/types"
	"github.com/localnerve/airtable-forms/internal/utils"
	"gorm.io/gorm"
)

// ErrorHandler renders every error returned by a handler or middleware.
// CustomErrors keep their status and type, remote failures carry the upstream
// body, anything else is a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var ce *types.CustomError
	if errors.As(err, &ce) {
		if ce.Code >= fiber.StatusInternalServerError {
			log.Printf("%s %s failed: %v (cause: %v)", c.Method(), c.OriginalURL(), ce, ce.Err)
		}
		return utils.CustomErrorResponse(c, ce)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.ErrorResponse(c, fe.Message, fe.Code, "")
	}

	log.Printf("%s %s failed: %v", c.Method(), c.OriginalURL(), err)
	return utils.ErrorResponse(c, "Internal Server Error", fiber.StatusInternalServerError, "")
}

// NotFoundHandler answers any unmatched route
func NotFoundHandler(c *fiber.Ctx) error {
	return utils.NotFoundResponse(c, "[404] Resource Not Found")
}

// ownerToken returns the stored access token of the authenticated user.
// Transient and unknown identities are unauthorized.
func ownerToken(db *gorm.DB, c *fiber.Ctx) (string, error) {
	user, err := services.GetUser(db, middleware.UserID(c))
	if err != nil {
		if types.IsType(err, types.TypeNotFound) {
			return "", types.NewAuthError("Unauthorized")
		}
		return "", err
	}
	return user.AccessToken, nil
}

// persistedOwner returns the user id of a session backed by a stored user.
// Degraded sessions are unauthorized.
func persistedOwner(c *fiber.Ctx) (string, error) {
	if claims := middleware.Claims(c); claims == nil || claims.Degraded {
		return "", types.NewAuthError("Unauthorized")
	}
	return middleware.UserID(c), nil
}

// readFiles loads the content of uploaded files
func readFiles(headers []*multipart.FileHeader) ([]services.Attachment, error) {
	files := make([]services.Attachment, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("cannot open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot read upload %s: %w", fh.Filename, err)
		}
		files = append(files, services.Attachment{Filename: fh.Filename, Data: data})
	}
	return files, nil
}

// attachmentKey extracts the field id from a multipart key of the form
// attachments[<fieldId>]
func attachmentKey(key string) (string, bool) {
	if !strings.HasPrefix(key, "attachments[") || !strings.HasSuffix(key, "]") {
		return "", false
	}
	id := key[len("attachments[") : len(key)-1]
	return id, id != ""
}

// decodeFields parses a JSON object of answers
func decodeFields(raw string) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	if strings.TrimSpace(raw) == "" {
		return fields, nil
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, types.NewValidationError("Invalid fields: %v", err)
	}
	return fields, nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}
