package models

// RegisterRequest is the request body for account registration
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
}

// UsernameRequest is the request body for operations keyed by username only
type UsernameRequest struct {
	Username string `json:"username" binding:"required"`
}

// VerifyRequest is the request body for code verification
type VerifyRequest struct {
	Username string `json:"username" binding:"required"`
	Code     string `json:"code" binding:"required"`
}
