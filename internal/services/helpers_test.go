package services

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sync"
	"testing"

	"github.com/localnerve/airtable-forms/internal/airtable"
	"github.com/localnerve/airtable-forms/internal/config"
	"github.com/localnerve/airtable-forms/internal/database"
	"github.com/localnerve/airtable-forms/internal/models"
	"github.com/localnerve/airtable-forms/internal/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(&config.Config{DBType: "sqlite", DBDatabase: ":memory:", DBConnectionLimit: 1})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, token string) *models.User {
	t.Helper()
	u := &models.User{AirtableUserID: "usr" + token, Name: "Owner", Email: "owner@example.com", AccessToken: token, TokenType: tokenTypePAT}
	require.NoError(t, db.Create(u).Error)
	return u
}

type createCall struct {
	Token  string
	BaseID string
	Table  string
	Fields map[string]interface{}
}

type fakeGateway struct {
	mu      sync.Mutex
	who     *airtable.WhoAmI
	whoErr  error
	bases   []airtable.Base
	tables  []airtable.Table
	err     error
	created []createCall
}

func (g *fakeGateway) WhoAmI(token string) (*airtable.WhoAmI, error) {
	if g.whoErr != nil {
		return nil, g.whoErr
	}
	return g.who, nil
}

func (g *fakeGateway) ListBases(token string) ([]airtable.Base, error) {
	return g.bases, g.err
}

func (g *fakeGateway) ListTables(token, baseID string) ([]airtable.Table, error) {
	return g.tables, g.err
}

func (g *fakeGateway) CreateRecord(token, baseID, table string, fields map[string]interface{}) (*airtable.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, createCall{Token: token, BaseID: baseID, Table: table, Fields: fields})
	if g.err != nil {
		return nil, g.err
	}
	return &airtable.Record{ID: fmt.Sprintf("rec%d", len(g.created)), CreatedTime: "2026-01-01T00:00:00.000Z", Fields: fields}, nil
}

type fakeUploader struct {
	mu        sync.Mutex
	uploads   []string
	destroyed []string
	kinds     []string
	failAt    int
	err       error
	// fixedID makes every upload land on the same asset, like a provider
	// that ignores the requested name.
	fixedID string
}

func (u *fakeUploader) Upload(ctx context.Context, r io.Reader, folder, publicID string) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	id := folder + "/" + publicID
	if u.fixedID != "" {
		id = u.fixedID
	}
	u.uploads = append(u.uploads, id)
	if u.err != nil && len(u.uploads) >= u.failAt {
		return nil, u.err
	}
	return &storage.UploadResult{
		URL:          "https://files.example.com/" + id,
		PublicID:     id,
		Bytes:        int64(len(data)),
		Format:       "txt",
		ResourceType: "raw",
	}, nil
}

func (u *fakeUploader) Destroy(ctx context.Context, publicID, resourceType string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.destroyed = append(u.destroyed, publicID)
	u.kinds = append(u.kinds, resourceType)
	return nil
}

// uploadedNames strips the unique suffix from every uploaded id.
func (u *fakeUploader) uploadedNames() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	names := make([]string, 0, len(u.uploads))
	for _, id := range u.uploads {
		names = append(names, uniqueSuffix.ReplaceAllString(id, ""))
	}
	return names
}

var uniqueSuffix = regexp.MustCompile(`_[0-9a-f]{12}$`)
