package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/localnerve/airtable-forms/internal/config"
	"github.com/localnerve/airtable-forms/internal/database"
	"github.com/localnerve/airtable-forms/internal/forms"
	"github.com/localnerve/airtable-forms/internal/models"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	path   string
	userID string
	formID string
}

// seed creates a sqlite file with one user, two forms and two staged uploads
func seed(t *testing.T) fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forms.db")
	db, err := database.Connect(&config.Config{DBType: "sqlite", DBDatabase: path, DBConnectionLimit: 1})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	user := models.User{AirtableUserID: "usrCtl", AccessToken: "pat"}
	require.NoError(t, db.Create(&user).Error)

	var lastID string
	for i, name := range []string{"Older", "Newer"} {
		form, err := models.NewForm(user.ID, forms.Draft{
			Name:     name,
			TableRef: forms.TableRef{BaseID: "appX", TableID: "tblY", TableName: "People"},
			Questions: []forms.Question{
				{RemoteFieldID: "fldA", RemoteFieldName: "A", Label: "A", Type: forms.ShortText},
			},
		})
		require.NoError(t, err)
		form.CreatedAt = time.Date(2026, 3, 1+i, 0, 0, 0, 0, time.UTC)
		require.NoError(t, db.Create(form).Error)
		lastID = form.ID
	}

	old := time.Now().UTC().Add(-72 * time.Hour)
	require.NoError(t, db.Create(&models.StagedUpload{PublicID: "f/old", URL: "https://x/old", CreatedAt: old}).Error)
	require.NoError(t, db.Create(&models.StagedUpload{PublicID: "f/new", URL: "https://x/new"}).Error)

	require.NoError(t, database.Close(db))
	return fixture{path: path, userID: user.ID, formID: lastID}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionNeedsNoDatabase(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "formsctl v"+version)
}

func TestMissingDatabaseIsAnError(t *testing.T) {
	t.Setenv("DB_DATABASE", "")
	_, err := run(t, "forms", "show", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db-database is required")
}

func TestFormsListByAirtableUserID(t *testing.T) {
	fx := seed(t)
	out, err := run(t, "--db-type", "sqlite", "--db-database", fx.path, "forms", "list", "--owner", "usrCtl", "--json")
	require.NoError(t, err)

	var list []forms.Schema
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Newer", list[0].Name)
	assert.Equal(t, "Older", list[1].Name)
}

func TestFormsListTable(t *testing.T) {
	fx := seed(t)
	out, err := run(t, "--db-type", "sqlite", "--db-database", fx.path, "forms", "list", "--owner", fx.userID)
	require.NoError(t, err)
	assert.Contains(t, out, "QUESTIONS")
	assert.Contains(t, out, "People")
}

func TestFormsListUnknownOwner(t *testing.T) {
	fx := seed(t)
	_, err := run(t, "--db-type", "sqlite", "--db-database", fx.path, "forms", "list", "--owner", "usrNobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown owner")
}

func TestFormsShow(t *testing.T) {
	fx := seed(t)
	out, err := run(t, "--db-type", "sqlite", "--db-database", fx.path, "forms", "show", fx.formID)
	require.NoError(t, err)

	var schema forms.Schema
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, fx.formID, schema.ID)
	assert.Equal(t, "Newer", schema.Name)

	_, err = run(t, "--db-type", "sqlite", "--db-database", fx.path, "forms", "show", "missing")
	assert.Error(t, err)
}

func TestSweepDryRunCountsOnlyStale(t *testing.T) {
	fx := seed(t)
	out, err := run(t, "--db-type", "sqlite", "--db-database", fx.path, "sweep", "--dry-run", "--older-than", "24h")
	require.NoError(t, err)
	assert.Contains(t, out, "1 staged uploads older than 24h0m0s would be removed")
}

func TestSweepWithoutStorageFails(t *testing.T) {
	fx := seed(t)
	t.Setenv("CLOUDINARY_URL", "")
	_, err := run(t, "--db-type", "sqlite", "--db-database", fx.path, "sweep", "--older-than", "24h")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestSettingsPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "formsctl.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("db-database: from-file\ndb-host: file-host\ndb-user: file-user\n"), 0o644))
	t.Setenv("DB_HOST", "env-host")
	for _, key := range []string{"DB_TYPE", "DB_DATABASE", "DB_USER"} {
		t.Setenv(key, "")
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(keyDBType, defaultDBType, "")
	flags.String(keyDBHost, "localhost", "")
	flags.String(keyDBDatabase, "", "")
	flags.String(keyDBUser, "", "")
	require.NoError(t, flags.Parse([]string{"--db-user", "flag-user"}))

	cfg, err := loadSettings(viper.New(), flags, cfgFile, "")
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.DBDatabase)
	assert.Equal(t, "env-host", cfg.DBHost)
	assert.Equal(t, "flag-user", cfg.DBUser)
	assert.Equal(t, defaultDBType, cfg.DBType)
	assert.Equal(t, 24*time.Hour, cfg.StagedUploadTTL)
}
