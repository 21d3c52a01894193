// response.go
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
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

// ErrorEnvelope is the JSON body of every error response
type ErrorEnvelope struct {
	Status    int             `json:"status"`
	Message   string          `json:"message"`
	Ok        bool            `json:"ok"`
	Timestamp string          `json:"timestamp"`
	URL       string          `json:"url"`
	Type      string          `json:"type"`
	Error     json.RawMessage `json:"error"`
}

// AssertStatus verifies the HTTP status code
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// ParseJSON decodes the response body into the target
func ParseJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	defer resp.Body.Close()

	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("Failed to decode JSON: %v. Body: %s", err, string(body))
	}
}

// AssertErrorEnvelope verifies status and the decoded error body, returning it
func AssertErrorEnvelope(t *testing.T, resp *http.Response, status int, errorType string) ErrorEnvelope {
	t.Helper()
	AssertStatus(t, resp, status)

	var env ErrorEnvelope
	ParseJSON(t, resp, &env)
	if env.Ok {
		t.Errorf("Expected ok=false in error envelope")
	}
	if env.Status != status {
		t.Errorf("Expected envelope status %d, got %d", status, env.Status)
	}
	if errorType != "" && env.Type != errorType {
		t.Errorf("Expected error type %q, got %q", errorType, env.Type)
	}
	return env
}
