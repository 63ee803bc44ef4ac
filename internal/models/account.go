package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is a registered user identified by a unique username and a unique
// phone number in canonical international form. An account whose phone has
// not been verified cannot complete a login.
type Account struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username      string             `bson:"username" json:"username"`
	Phone         string             `bson:"phone" json:"phone"`
	PhoneVerified bool               `bson:"phone_verified" json:"phone_verified"`
	Active        bool               `bson:"active" json:"active"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	LastLoginAt   *time.Time         `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
}

// AccountProfile is the public projection of an account returned to callers
type AccountProfile struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Phone         string     `json:"phone"`
	PhoneVerified bool       `json:"phone_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// Profile returns the public projection of the account
func (a *Account) Profile() AccountProfile {
	return AccountProfile{
		ID:            a.ID.Hex(),
		Username:      a.Username,
		Phone:         a.Phone,
		PhoneVerified: a.PhoneVerified,
		CreatedAt:     a.CreatedAt,
		LastLoginAt:   a.LastLoginAt,
	}
}
