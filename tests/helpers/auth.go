package helpers

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/airtable-forms/internal/airtable"
	"github.com/localnerve/airtable-forms/internal/services"
)

// SessionCookie signs a session for userID and returns it as a request cookie
func SessionCookie(t *testing.T, signer *services.SessionSigner, userID string) *http.Cookie {
	t.Helper()
	token, expires, err := signer.Issue(userID, false)
	if err != nil {
		t.Fatalf("Failed to issue session token: %v", err)
	}
	return &http.Cookie{
		Name:    services.SessionCookie,
		Value:   token,
		Expires: expires,
	}
}

// CreatedRecord is one record posted to a FakeAirtable
type CreatedRecord struct {
	BaseID string
	Table  string
	Token  string
	Fields map[string]interface{}
}

// FakeAirtable serves the subset of the Airtable API the service calls.
// Only requests bearing ValidToken succeed.
type FakeAirtable struct {
	URL        string
	ValidToken string
	Who        airtable.WhoAmI
	Bases      []airtable.Base
	Tables     map[string][]airtable.Table

	app     *fiber.App
	mu      sync.Mutex
	created []CreatedRecord
}

// StartFakeAirtable listens on a loopback port until the test ends
func StartFakeAirtable(t *testing.T, validToken string) *FakeAirtable {
	t.Helper()

	fake := &FakeAirtable{
		ValidToken: validToken,
		Who:        airtable.WhoAmI{ID: "usrFake", Email: "owner@example.com"},
		Tables:     map[string][]airtable.Table{},
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(func(c *fiber.Ctx) error {
		auth := c.Get(fiber.HeaderAuthorization)
		if strings.TrimPrefix(auth, "Bearer ") != fake.ValidToken {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": fiber.Map{"type": "AUTHENTICATION_REQUIRED", "message": "Authentication required"},
			})
		}
		return c.Next()
	})
	app.Get("/v0/meta/whoami", func(c *fiber.Ctx) error {
		return c.JSON(fake.Who)
	})
	app.Get("/v0/meta/bases", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"bases": fake.Bases})
	})
	app.Get("/v0/meta/bases/:base/tables", func(c *fiber.Ctx) error {
		tables, ok := fake.Tables[c.Params("base")]
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "NOT_FOUND"})
		}
		return c.JSON(fiber.Map{"tables": tables})
	})
	app.Post("/v0/:base/:table", func(c *fiber.Ctx) error {
		var body struct {
			Fields map[string]interface{} `json:"fields"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "INVALID_REQUEST_BODY"})
		}

		fake.mu.Lock()
		fake.created = append(fake.created, CreatedRecord{
			BaseID: c.Params("base"),
			Table:  c.Params("table"),
			Token:  strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "),
			Fields: body.Fields,
		})
		id := len(fake.created)
		fake.mu.Unlock()

		return c.JSON(airtable.Record{
			ID:          fmt.Sprintf("rec%03d", id),
			CreatedTime: time.Now().UTC().Format(time.RFC3339),
			Fields:      body.Fields,
		})
	})
	fake.app = app

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen for fake Airtable: %v", err)
	}
	fake.URL = "http://" + ln.Addr().String()

	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = app.Shutdown()
	})

	return fake
}

// Created returns a copy of the records posted so far
func (f *FakeAirtable) Created() []CreatedRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]CreatedRecord, len(f.created))
	copy(out, f.created)
	return out
}
