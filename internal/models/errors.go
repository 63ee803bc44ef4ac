package models

import "errors"

// Error constants for store operations
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("username already registered")
	ErrPhoneExists       = errors.New("phone number already registered")
	ErrSessionNotFound   = errors.New("verification session not found")
	ErrAttemptsExhausted = errors.New("verification attempts exhausted")
)
