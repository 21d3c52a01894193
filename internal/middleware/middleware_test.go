package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/airtable-forms/internal/services"
	"github.com/localnerve/airtable-forms/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthApp(signer *services.SessionSigner) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if types.IsType(err, types.TypeAuth) {
				return c.Status(fiber.StatusUnauthorized).SendString(err.Error())
			}
			return fiber.DefaultErrorHandler(c, err)
		},
	})
	app.Get("/private", RequireAuth(signer), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	return app
}

func TestRequireAuth(t *testing.T) {
	signer := services.NewSessionSigner("secret", time.Hour)
	token, _, err := signer.Issue("user-1", false)
	require.NoError(t, err)
	app := newAuthApp(signer)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		body   string
	}{
		{name: "cookie", setup: func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: services.SessionCookie, Value: token})
		}, status: http.StatusOK, body: "user-1"},
		{name: "bearer", setup: func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		}, status: http.StatusOK, body: "user-1"},
		{name: "missing", setup: func(r *http.Request) {}, status: http.StatusUnauthorized},
		{name: "garbage", setup: func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer nope")
		}, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			tt.setup(req)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tt.body, string(body))
			}
		})
	}
}

func TestVersionMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(VersionMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("apiVersion").(string))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Api-Version", "1.0")
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, APIVersion, string(body))
	assert.Equal(t, APIVersion, resp.Header.Get("X-Api-Version"))
}
