// Package airtable is a thin pass-through to the Airtable REST and metadata APIs.
// Calls are never retried and responses are never cached; any failure is
// surfaced to the caller as a remote error carrying the upstream status and body.
package airtable

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/airtable-forms/internal/types"
)

// DefaultBaseURL is the public Airtable API host
const DefaultBaseURL = "https://api.airtable.com"

// WhoAmI is the identity behind an access token
type WhoAmI struct {
	ID     string   `json:"id"`
	Email  string   `json:"email,omitempty"`
	Name   string   `json:"name,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
}

// Base is an Airtable base visible to the token
type Base struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PermissionLevel string `json:"permissionLevel,omitempty"`
}

// Choice is one option of a select field
type Choice struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// FieldOptions holds the type specific options of a field
type FieldOptions struct {
	Choices []Choice `json:"choices,omitempty"`
}

// Field is a column of an Airtable table
type Field struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Type    string        `json:"type"`
	Options *FieldOptions `json:"options,omitempty"`
}

// ChoiceNames returns the option names of a select field, in order
func (f Field) ChoiceNames() []string {
	if f.Options == nil || len(f.Options.Choices) == 0 {
		return nil
	}
	names := make([]string, 0, len(f.Options.Choices))
	for _, c := range f.Options.Choices {
		names = append(names, c.Name)
	}
	return names
}

// Table is an Airtable table with its fields
type Table struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	PrimaryFieldID string  `json:"primaryFieldId,omitempty"`
	Fields         []Field `json:"fields"`
}

// Field looks up a field by id
func (t *Table) Field(id string) (Field, bool) {
	for _, f := range t.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Record is a created Airtable record
type Record struct {
	ID          string                 `json:"id"`
	CreatedTime string                 `json:"createdTime"`
	Fields      map[string]interface{} `json:"fields"`
}

// Client calls the Airtable API with a per-call bearer token
type Client struct {
	BaseURL string
	http    *fiber.Client
}

// NewClient creates a client for the given API host, DefaultBaseURL when empty
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &fiber.Client{UserAgent: "airtable-forms"},
	}
}

// WhoAmI resolves the identity of a token
func (c *Client) WhoAmI(token string) (*WhoAmI, error) {
	var who WhoAmI
	if err := c.get(token, "/v0/meta/whoami", &who); err != nil {
		return nil, err
	}
	return &who, nil
}

// ListBases lists every base the token can see, following pagination
func (c *Client) ListBases(token string) ([]Base, error) {
	bases := []Base{}
	offset := ""
	for {
		path := "/v0/meta/bases"
		if offset != "" {
			path += "?offset=" + url.QueryEscape(offset)
		}

		var page struct {
			Bases  []Base `json:"bases"`
			Offset string `json:"offset"`
		}
		if err := c.get(token, path, &page); err != nil {
			return nil, err
		}
		bases = append(bases, page.Bases...)

		if page.Offset == "" || page.Offset == offset {
			return bases, nil
		}
		offset = page.Offset
	}
}

// ListTables lists the tables and field metadata of a base
func (c *Client) ListTables(token, baseID string) ([]Table, error) {
	var res struct {
		Tables []Table `json:"tables"`
	}
	if err := c.get(token, "/v0/meta/bases/"+url.PathEscape(baseID)+"/tables", &res); err != nil {
		return nil, err
	}
	if res.Tables == nil {
		res.Tables = []Table{}
	}
	return res.Tables, nil
}

// CreateRecord posts one record. Fields are keyed by field name; table is the
// table name or id.
func (c *Client) CreateRecord(token, baseID, table string, fields map[string]interface{}) (*Record, error) {
	agent := c.http.Post(c.BaseURL + "/v0/" + url.PathEscape(baseID) + "/" + url.PathEscape(table))
	agent.Set(fiber.HeaderAuthorization, bearer(token))
	agent.JSON(fiber.Map{"fields": fields})

	var record Record
	if err := do(agent, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) get(token, path string, out interface{}) error {
	agent := c.http.Get(c.BaseURL + path)
	agent.Set(fiber.HeaderAuthorization, bearer(token))
	return do(agent, out)
}

func bearer(token string) string {
	return "Bearer " + strings.TrimSpace(token)
}

// do runs the request and decodes a 2xx body into out
func do(agent *fiber.Agent, out interface{}) error {
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return types.NewRemoteTransportError(errs[0])
	}
	if code < 200 || code > 299 {
		return types.NewRemoteError(code, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return types.NewRemoteTransportError(fmt.Errorf("invalid response body: %w", err))
	}
	return nil
}
