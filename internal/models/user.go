package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a form owner authenticated with an Airtable personal access token.
// AccessToken holds exactly one live token, re-authentication overwrites it.
type User struct {
	ID             string `gorm:"primaryKey;type:char(36)"`
	AirtableUserID string `gorm:"size:64;not null;uniqueIndex"`
	Email          string `gorm:"size:255"`
	Name           string `gorm:"size:255"`
	AccessToken    string `gorm:"type:text"`
	TokenType      string `gorm:"size:64"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a generated identifier
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
