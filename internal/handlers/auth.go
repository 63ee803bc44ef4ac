package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shiftwise/auth-api/internal/logging"
	"github.com/shiftwise/auth-api/internal/middleware"
	"github.com/shiftwise/auth-api/internal/models"
	"github.com/shiftwise/auth-api/internal/services"
	"github.com/shiftwise/auth-api/internal/token"
	"go.uber.org/zap"
)

// Engine is the verification engine surface the handlers depend on
type Engine interface {
	Register(ctx context.Context, username, phone string) (services.Result, error)
	ResendVerification(ctx context.Context, username string) (services.Result, error)
	VerifyRegistration(ctx context.Context, username, code string) (services.Result, error)
	RequestLogin(ctx context.Context, username string) (services.Result, error)
	Login(ctx context.Context, username, code, sourceAddress string) (services.Result, error)
	Profile(ctx context.Context, username string) (*models.AccountProfile, error)
	Accounts(ctx context.Context) ([]models.AccountProfile, error)
	History(ctx context.Context, username string, limit int) ([]models.LoginAttempt, error)
}

// AuthResponse is the envelope returned by every auth endpoint
type AuthResponse struct {
	Succeeded bool        `json:"succeeded"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
}

// SessionData is the payload returned when an operation ends a flow with a
// signed credential
type SessionData struct {
	Token   string                `json:"token"`
	Account models.AccountProfile `json:"account"`
}

// AuthHandler exposes the verification engine over HTTP
type AuthHandler struct {
	engine Engine
	issuer *token.Issuer
	logger *zap.Logger
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(engine Engine, issuer *token.Issuer) *AuthHandler {
	return &AuthHandler{
		engine: engine,
		issuer: issuer,
		logger: logging.Logger.Named("handlers"),
	}
}

func (h *AuthHandler) internalError(c *gin.Context, op string, err error) {
	h.logger.Error("operation failed",
		zap.String("operation", op),
		zap.String("request_id", c.GetString(middleware.RequestIDKey)),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, AuthResponse{
		Succeeded: false,
		Message:   "internal error",
	})
}

// respond renders an engine result, minting a token when the operation
// completed a flow with a verified account
func (h *AuthHandler) respond(c *gin.Context, res services.Result, failureStatus int) {
	if !res.Succeeded {
		c.JSON(failureStatus, AuthResponse{Succeeded: false, Message: res.Message})
		return
	}

	response := AuthResponse{Succeeded: true, Message: res.Message}
	if res.Account != nil {
		signed, err := h.issuer.Issue(res.Account)
		if err != nil {
			h.internalError(c, "issue_token", err)
			return
		}
		response.Data = SessionData{Token: signed, Account: res.Account.Profile()}
	}
	c.JSON(http.StatusOK, response)
}

// Register godoc
// @Summary Register a new account
// @Description Creates an account and sends a verification code to the phone
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration data"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} AuthResponse
// @Router /v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, AuthResponse{Succeeded: false, Message: "username and phone are required"})
		return
	}

	res, err := h.engine.Register(c.Request.Context(), req.Username, req.Phone)
	if err != nil {
		h.internalError(c, "register", err)
		return
	}
	h.respond(c, res, http.StatusBadRequest)
}

// ResendVerification godoc
// @Summary Resend the registration verification code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.UsernameRequest true "Account username"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} AuthResponse
// @Router /v1/auth/register/resend [post]
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req models.UsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, AuthResponse{Succeeded: false, Message: "username is required"})
		return
	}

	res, err := h.engine.ResendVerification(c.Request.Context(), req.Username)
	if err != nil {
		h.internalError(c, "resend_verification", err)
		return
	}
	h.respond(c, res, http.StatusBadRequest)
}

// VerifyRegistration godoc
// @Summary Verify the registration code
// @Description Confirms the phone number and returns a signed token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.VerifyRequest true "Verification code"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} AuthResponse
// @Router /v1/auth/register/verify [post]
func (h *AuthHandler) VerifyRegistration(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, AuthResponse{Succeeded: false, Message: "username and code are required"})
		return
	}

	res, err := h.engine.VerifyRegistration(c.Request.Context(), req.Username, req.Code)
	if err != nil {
		h.internalError(c, "verify_registration", err)
		return
	}
	h.respond(c, res, http.StatusBadRequest)
}

// RequestLogin godoc
// @Summary Start a login
// @Description Verified accounts log in directly and receive a token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.UsernameRequest true "Account username"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} AuthResponse
// @Router /v1/auth/login/request [post]
func (h *AuthHandler) RequestLogin(c *gin.Context) {
	var req models.UsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, AuthResponse{Succeeded: false, Message: "username is required"})
		return
	}

	res, err := h.engine.RequestLogin(c.Request.Context(), req.Username)
	if err != nil {
		h.internalError(c, "request_login", err)
		return
	}
	h.respond(c, res, http.StatusUnauthorized)
}

// Login godoc
// @Summary Complete a login with a verification code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.VerifyRequest true "Verification code"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} AuthResponse
// @Router /v1/auth/login/verify [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, AuthResponse{Succeeded: false, Message: "username and code are required"})
		return
	}

	res, err := h.engine.Login(c.Request.Context(), req.Username, req.Code, c.ClientIP())
	if err != nil {
		h.internalError(c, "login", err)
		return
	}
	h.respond(c, res, http.StatusUnauthorized)
}

// Profile godoc
// @Summary Get the caller's public profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AuthResponse
// @Failure 401 {object} AuthResponse
// @Router /v1/auth/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	username, ok := middleware.UsernameFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, AuthResponse{Succeeded: false, Message: "unauthorized"})
		return
	}

	profile, err := h.engine.Profile(c.Request.Context(), username)
	if err != nil {
		if err == models.ErrAccountNotFound {
			c.JSON(http.StatusNotFound, AuthResponse{Succeeded: false, Message: "account not found"})
			return
		}
		h.internalError(c, "profile", err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Succeeded: true, Message: "ok", Data: profile})
}

// Accounts godoc
// @Summary List registered accounts
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AuthResponse
// @Failure 401 {object} AuthResponse
// @Router /v1/auth/accounts [get]
func (h *AuthHandler) Accounts(c *gin.Context) {
	profiles, err := h.engine.Accounts(c.Request.Context())
	if err != nil {
		h.internalError(c, "accounts", err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Succeeded: true, Message: "ok", Data: profiles})
}

// History godoc
// @Summary Get the caller's recent login attempts
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum records to return" default(10)
// @Success 200 {object} AuthResponse
// @Failure 401 {object} AuthResponse
// @Router /v1/auth/history [get]
func (h *AuthHandler) History(c *gin.Context) {
	username, ok := middleware.UsernameFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, AuthResponse{Succeeded: false, Message: "unauthorized"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, AuthResponse{Succeeded: false, Message: "invalid limit"})
		return
	}

	history, err := h.engine.History(c.Request.Context(), username, limit)
	if err != nil {
		h.internalError(c, "history", err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Succeeded: true, Message: "ok", Data: history})
}

// HealthCheck godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /v1/health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
