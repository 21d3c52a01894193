// routes.go
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
	"github.com/localnerve/airtable-forms/internal/config"
	"github.com/localnerve/airtable-forms/internal/middleware"
	"github.com/localnerve/airtable-forms/internal/services"
	"gorm.io/gorm"
)

// Deps are the collaborators shared by all route handlers
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Gateway  services.RemoteGateway
	Signer   *services.SessionSigner
	Uploads  *services.UploadService
	Store    *services.FormStore
	Pipeline *services.SubmissionPipeline
}

// NewDeps wires the services over one database and gateway
func NewDeps(cfg *config.Config, db *gorm.DB, gateway services.RemoteGateway, uploads *services.UploadService) *Deps {
	return &Deps{
		Config:   cfg,
		DB:       db,
		Gateway:  gateway,
		Signer:   services.NewSessionSigner(cfg.JWTSecret, cfg.SessionTTL),
		Uploads:  uploads,
		Store:    &services.FormStore{DB: db},
		Pipeline: &services.SubmissionPipeline{DB: db, Gateway: gateway, Uploads: uploads},
	}
}

// RegisterRoutes mounts /health and the /api routes
func RegisterRoutes(app *fiber.App, d *Deps) {
	healthHandler := &HealthHandler{Config: d.Config, DB: d.DB}
	app.Get("/health", healthHandler.Health)

	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	requireAuth := middleware.RequireAuth(d.Signer)

	authHandler := &AuthHandler{
		Auth:         &services.AuthService{DB: d.DB, Gateway: d.Gateway, Signer: d.Signer},
		CookieSecure: d.Config.CookieSecure,
	}
	airtableHandler := &AirtableHandler{DB: d.DB, Gateway: d.Gateway}
	formsHandler := &FormsHandler{DB: d.DB, Store: d.Store, Gateway: d.Gateway, Pipeline: d.Pipeline}
	uploadHandler := &UploadHandler{Uploads: d.Uploads}

	// Session routes
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", requireAuth, authHandler.Me)
	auth.Post("/logout", authHandler.Logout)
	auth.Get("/airtable/login", authHandler.OAuthDeprecated)
	auth.Get("/airtable/callback", authHandler.OAuthDeprecated)

	// Remote passthroughs
	at := api.Group("/airtable", requireAuth)
	at.Get("/bases", airtableHandler.ListBases)
	at.Get("/bases/:baseId/tables", airtableHandler.ListTables)

	// Forms, reads and submissions are public
	fm := api.Group("/forms")
	fm.Post("/", requireAuth, formsHandler.CreateForm)
	fm.Get("/", requireAuth, formsHandler.ListForms)
	fm.Post("/build", requireAuth, formsHandler.BuildForm)
	fm.Get("/:id", formsHandler.GetForm)
	fm.Put("/:id", requireAuth, formsHandler.UpdateForm)
	fm.Post("/:id/submit", formsHandler.SubmitForm)

	// Uploads
	api.Post("/upload/attachments", requireAuth, uploadHandler.UploadAttachments)
}
