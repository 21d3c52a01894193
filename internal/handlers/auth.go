// auth.go
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
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/airtable-forms/internal/middleware"
	"github.com/localnerve/airtable-forms/internal/services"
	"github.com/localnerve/airtable-forms/internal/types"
)

// AuthHandler handles the personal access token session routes
type AuthHandler struct {
	Auth         *services.AuthService
	CookieSecure bool
}

// LoginRequest is the credential exchange body
type LoginRequest struct {
	PersonalAccessToken string `json:"personalAccessToken"`
}

// UserResponse wraps the public profile
type UserResponse struct {
	Success  bool                 `json:"success,omitempty"`
	User     services.UserProfile `json:"user"`
	Degraded bool                 `json:"degraded,omitempty"`
	Message  string               `json:"message,omitempty"`
}

// Login handles POST /api/auth/login
// @Summary Log in with an Airtable personal access token
// @Description Verifies the token with Airtable, stores it on the user and sets the app_token session cookie.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} UserResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return types.NewValidationError("Personal Access Token is required")
	}

	res, err := h.Auth.Login(req.PersonalAccessToken)
	if err != nil {
		return err
	}

	c.Cookie(h.sessionCookie(res.Token, res.ExpiresAt))

	body := UserResponse{Success: true, User: res.User, Degraded: res.Degraded}
	if res.Degraded {
		body.Message = "Signed in with a transient identity, the datastore is unavailable"
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

// Me handles GET /api/auth/me
// @Summary Current user
// @Tags Auth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	if claims == nil {
		return types.NewAuthError("Unauthorized")
	}

	profile, err := h.Auth.CurrentUser(claims)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(UserResponse{User: *profile, Degraded: claims.Degraded})
}

// Logout handles POST /api/auth/logout
// @Summary Log out
// @Description Clears the session cookie.
// @Tags Auth
// @Produce json
// @Success 200 {object} utils.OkResponseStruct
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(h.sessionCookie("", time.Unix(0, 0)))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// OAuthDeprecated handles the retired OAuth login and callback routes
// @Summary Deprecated OAuth flow
// @Tags Auth
// @Produce json
// @Failure 400 {object} map[string]string
// @Router /auth/airtable/login [get]
// @Router /auth/airtable/callback [get]
func (h *AuthHandler) OAuthDeprecated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "OAuth deprecated. Use Personal Access Token instead.",
		"message": `Send POST to /api/auth/login with { "personalAccessToken": "your_token" }`,
	})
}

func (h *AuthHandler) sessionCookie(value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     services.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
