package database

import (
	"testing"

	"github.com/localnerve/airtable-forms/internal/config"
	"github.com/localnerve/airtable-forms/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLDSN(t *testing.T) {
	cfg := &config.Config{
		DBHost:     "db",
		DBPort:     "3306",
		DBDatabase: "forms",
		DBUser:     "app",
		DBPassword: "p@ss",
	}
	dsn := MySQLDSN(cfg)
	assert.Contains(t, dsn, "app:p@ss@tcp(db:3306)/forms?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestDialectorUnsupported(t *testing.T) {
	_, err := Dialector(&config.Config{DBType: "oracle"})
	assert.EqualError(t, err, "unsupported database type: oracle")
}

func TestDialectorNames(t *testing.T) {
	for dbType, want := range map[string]string{
		"mysql":     "mysql",
		"mariadb":   "mysql",
		"postgres":  "postgres",
		"sqlite":    "sqlite",
		"sqlserver": "sqlserver",
	} {
		d, err := Dialector(&config.Config{DBType: dbType, DBDatabase: "x", DBHost: "h", DBPort: "1"})
		require.NoError(t, err, dbType)
		assert.Equal(t, want, d.Name(), dbType)
	}
}

func TestConnectAndMigrateInMemory(t *testing.T) {
	db, err := Connect(&config.Config{DBType: "sqlite", DBDatabase: ":memory:", DBConnectionLimit: 1})
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, AutoMigrate(db))
	for _, table := range []interface{}{&models.User{}, &models.Form{}, &models.StagedUpload{}, &models.Submission{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
}
