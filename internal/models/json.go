package models

import (
	"database/sql/driver"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSON is a wrapper around gorm.io/datatypes.JSON so the column type can be chosen per dialect
type JSON struct {
	datatypes.JSON
}

// Value promotes the embedded JSON's Value method. An empty document is stored as an empty array.
func (j JSON) Value() (driver.Value, error) {
	if len(j.JSON) == 0 {
		return "[]", nil
	}
	return j.JSON.Value()
}

// Scan promotes the embedded JSON's Scan method
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		j.JSON = datatypes.JSON("[]")
		return nil
	}
	return j.JSON.Scan(value)
}

// GormDBDataType picks the column type per driver; SQL Server has no json type.
func (JSON) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	case "sqlite":
		return "JSON"
	}
	return "TEXT"
}
