package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Flow distinguishes registration sessions from login sessions
type Flow string

const (
	FlowRegistration Flow = "registration"
	FlowLogin        Flow = "login"
)

// MaxVerificationAttempts is the retry budget per session. When the counter
// reaches it the session is deleted and the flow restarts from a fresh code
// request.
const MaxVerificationAttempts = 5

// VerificationSession is one in-flight OTP challenge for a (username, flow)
// pair. The phone is a snapshot taken when the code was dispatched.
type VerificationSession struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username    string             `bson:"username" json:"username"`
	Phone       string             `bson:"phone" json:"phone"`
	Flow        Flow               `bson:"flow" json:"flow"`
	RequestedAt time.Time          `bson:"requested_at" json:"requested_at"`
	ExpiresAt   time.Time          `bson:"expires_at" json:"expires_at"`
	Attempts    int                `bson:"attempts" json:"attempts"`
}

// Expired reports whether the session is past its expiry. The TTL index on
// expires_at is best-effort cleanup only; this check is authoritative.
func (s *VerificationSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
