package models

import (
	"time"

	"github.com/google/uuid"
)

// IdentityMetadata is carried on the identity itself and mirrors the profile.
type IdentityMetadata struct {
	Name              string `json:"name"`
	SessionCredential string `json:"session_id"`
}

// Identity is what the account service knows about a signed-in user.
type Identity struct {
	ID       string           `json:"id"`
	Email    string           `json:"email"`
	Metadata IdentityMetadata `json:"metadata"`
}

// Account is the storefront's view of the signed-in customer.
type Account struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	DisplayName       string `json:"display_name"`
	SessionCredential string `json:"session_credential"`
}

// User is the identity record backing sign-in.
type User struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email             string    `gorm:"uniqueIndex;not null"`
	PasswordHash      string    `gorm:"not null"`
	Name              string    `gorm:"not null"`
	SessionCredential string    `gorm:"size:66"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

// ToIdentity projects a stored user onto the identity shape.
func (u *User) ToIdentity() *Identity {
	return &Identity{
		ID:    u.ID.String(),
		Email: u.Email,
		Metadata: IdentityMetadata{
			Name:              u.Name,
			SessionCredential: u.SessionCredential,
		},
	}
}

// Profile is the storefront-local copy of account details keyed by identity id.
type Profile struct {
	ID                string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string    `gorm:"not null" json:"name"`
	Email             string    `gorm:"not null" json:"email"`
	SessionCredential string    `gorm:"size:66" json:"session_credential"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
