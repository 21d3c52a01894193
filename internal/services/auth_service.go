package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/localnerve/airtable-forms/internal/models"
	"github.com/localnerve/airtable-forms/internal/types"
	"gorm.io/gorm"
)

const (
	tokenTypePAT       = "personal_access_token"
	transientUserIDPfx = "transient_"
	defaultUserName    = "Airtable User"
	defaultUserEmail   = "no-email@example.com"
)

// UserProfile is the public view of a user
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// LoginResult is the outcome of a successful credential exchange.
// Degraded is set when the user could not be persisted; the identity is then
// transient and authenticated calls needing the stored token will fail.
type LoginResult struct {
	User      UserProfile
	Token     string
	ExpiresAt time.Time
	Degraded  bool
}

// AuthService exchanges a personal access token for a session
type AuthService struct {
	DB      *gorm.DB
	Gateway RemoteGateway
	Signer  *SessionSigner
}

// Login verifies the token with a whoami call, stores it on the user (last write
// wins) and signs a session token.
func (s *AuthService) Login(personalAccessToken string) (*LoginResult, error) {
	pat := strings.TrimSpace(personalAccessToken)
	if pat == "" {
		return nil, types.NewValidationError("Personal Access Token is required")
	}

	who, err := s.Gateway.WhoAmI(pat)
	if err != nil {
		log.Printf("Login rejected: whoami failed: %v", err)
		return nil, types.NewAuthError("Invalid Personal Access Token")
	}
	if who.ID == "" {
		return nil, types.NewAuthError("Invalid Personal Access Token")
	}

	profile := UserProfile{Name: who.Name, Email: who.Email}
	if profile.Name == "" {
		profile.Name = defaultUserName
	}
	if profile.Email == "" {
		profile.Email = defaultUserEmail
	}

	degraded := false
	user, err := upsertUser(s.DB, who.ID, profile, pat)
	if err != nil {
		log.Printf("Login degraded: cannot persist user %s: %v", who.ID, err)
		degraded = true
		profile.ID = transientUserIDPfx + who.ID
	} else {
		profile.ID = user.ID
	}

	token, expires, err := s.Signer.Issue(profile.ID, degraded)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:      profile,
		Token:     token,
		ExpiresAt: expires,
		Degraded:  degraded,
	}, nil
}

// CurrentUser resolves session claims to a profile
func (s *AuthService) CurrentUser(claims *SessionClaims) (*UserProfile, error) {
	if claims.Degraded {
		return &UserProfile{ID: claims.Subject}, nil
	}
	user, err := GetUser(s.DB, claims.Subject)
	if err != nil {
		if types.IsType(err, types.TypeNotFound) {
			return nil, types.NewAuthError("Unauthorized")
		}
		return nil, err
	}
	return &UserProfile{ID: user.ID, Name: user.Name, Email: user.Email}, nil
}

// GetUser loads a user by id
func GetUser(db *gorm.DB, userID string) (*models.User, error) {
	if strings.HasPrefix(userID, transientUserIDPfx) {
		return nil, types.NewNotFoundError("User not found")
	}

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewNotFoundError("User not found")
		}
		return nil, types.NewPersistenceError(err)
	}
	return &user, nil
}

// upsertUser finds the user by Airtable id, creating it when missing, and
// overwrites the stored token.
func upsertUser(db *gorm.DB, airtableUserID string, profile UserProfile, pat string) (*models.User, error) {
	var user models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("airtable_user_id = ?", airtableUserID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{
				AirtableUserID: airtableUserID,
				Email:          profile.Email,
				Name:           profile.Name,
				AccessToken:    pat,
				TokenType:      tokenTypePAT,
			}
			return tx.Create(&user).Error
		}
		if err != nil {
			return err
		}

		return tx.Model(&user).Updates(map[string]interface{}{
			"access_token": pat,
			"token_type":   tokenTypePAT,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &user, nil
}
