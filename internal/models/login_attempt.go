package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LoginAttempt is an append-only audit record of one login attempt.
// Retention is an external concern; this service never mutates or deletes
// these records.
type LoginAttempt struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username      string             `bson:"username" json:"username"`
	Phone         string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Timestamp     time.Time          `bson:"timestamp" json:"timestamp"`
	Success       bool               `bson:"success" json:"success"`
	SourceAddress string             `bson:"source_address,omitempty" json:"source_address,omitempty"`
}
