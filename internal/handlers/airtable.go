// airtable.go
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
	"github.com/localnerve/airtable-forms/internal/airtable"
	"github.com/localnerve/airtable-forms/internal/services"
	"gorm.io/gorm"
)

// AirtableHandler passes base and table listings through with the caller's stored token
type AirtableHandler struct {
	DB      *gorm.DB
	Gateway services.RemoteGateway
}

// BasesResponse lists bases
type BasesResponse struct {
	Bases []airtable.Base `json:"bases"`
}

// TablesResponse lists tables with their fields
type TablesResponse struct {
	Tables []airtable.Table `json:"tables"`
}

// ListBases handles GET /api/airtable/bases
// @Summary List bases
// @Tags Airtable
// @Produce json
// @Success 200 {object} BasesResponse
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /airtable/bases [get]
func (h *AirtableHandler) ListBases(c *fiber.Ctx) error {
	token, err := ownerToken(h.DB, c)
	if err != nil {
		return err
	}

	bases, err := h.Gateway.ListBases(token)
	if err != nil {
		return err
	}
	if bases == nil {
		bases = []airtable.Base{}
	}
	return c.Status(fiber.StatusOK).JSON(BasesResponse{Bases: bases})
}

// ListTables handles GET /api/airtable/bases/:baseId/tables
// @Summary List tables of a base
// @Tags Airtable
// @Produce json
// @Param baseId path string true "Base ID"
// @Success 200 {object} TablesResponse
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /airtable/bases/{baseId}/tables [get]
func (h *AirtableHandler) ListTables(c *fiber.Ctx) error {
	token, err := ownerToken(h.DB, c)
	if err != nil {
		return err
	}

	tables, err := h.Gateway.ListTables(token, c.Params("baseId"))
	if err != nil {
		return err
	}
	if tables == nil {
		tables = []airtable.Table{}
	}
	return c.Status(fiber.StatusOK).JSON(TablesResponse{Tables: tables})
}
