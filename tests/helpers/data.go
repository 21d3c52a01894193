// data.go
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

package helpers

import (
	"testing"

	"github.com/localnerve/airtable-forms/internal/forms"
	"github.com/localnerve/airtable-forms/internal/models"
	"github.com/localnerve/airtable-forms/internal/types"
	"gorm.io/gorm"
)

// CreateTestUser creates an owner holding the given Airtable token
func CreateTestUser(t *testing.T, db *gorm.DB, airtableUserID, token string) *models.User {
	t.Helper()
	user := models.User{
		AirtableUserID: airtableUserID,
		Email:          airtableUserID + "@example.com",
		AccessToken:    token,
		TokenType:      "pat",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return &user
}

// ApplicantDraft is a four question form over appTest/tblApplicants.
// "Why" is only visible when "Role" equals Yes.
func ApplicantDraft(name string) forms.Draft {
	return forms.Draft{
		Name:     name,
		TableRef: forms.TableRef{BaseID: "appTest", TableID: "tblApplicants", TableName: "Applicants"},
		Questions: []forms.Question{
			{RemoteFieldID: "fldRole", RemoteFieldName: "Role", Label: "Role", Type: forms.SingleSelect, Required: true, Options: types.FlexList[string]{"Yes", "No"}},
			{RemoteFieldID: "fldWhy", RemoteFieldName: "Why", Label: "Why", Type: forms.LongText, Required: true, Conditions: types.FlexList[forms.Condition]{
				{DependsOnFieldID: "fldRole", Operator: forms.Equals, Value: "Yes"},
			}},
			{RemoteFieldID: "fldTags", RemoteFieldName: "Tags", Label: "Tags", Type: forms.MultiSelect, Options: types.FlexList[string]{"go", "sql"}},
			{RemoteFieldID: "fldNotes", RemoteFieldName: "Notes", Label: "Notes", Type: forms.ShortText},
		},
	}
}

// CreateTestForm stores draft for the owner without validation
func CreateTestForm(t *testing.T, db *gorm.DB, ownerID string, draft forms.Draft) *models.Form {
	t.Helper()
	form, err := models.NewForm(ownerID, draft)
	if err != nil {
		t.Fatalf("Failed to build form: %v", err)
	}
	if err := db.Create(form).Error; err != nil {
		t.Fatalf("Failed to create form: %v", err)
	}
	return form
}
