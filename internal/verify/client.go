package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shiftwise/auth-api/internal/logging"
	"github.com/shiftwise/auth-api/internal/observability"
	"go.uber.org/zap"
)

// Challenge statuses reported by the gateway
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// Client starts OTP challenges and checks submitted codes. The engine treats
// any error from StartChallenge as a dispatch failure and rolls back
// dependent writes.
type Client interface {
	StartChallenge(ctx context.Context, phone, locale string) error
	CheckChallenge(ctx context.Context, phone, code string) (bool, error)
}

// Config carries the gateway credentials
type Config struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	ServiceSID string
}

// HTTPClient talks to a Verify-style REST API (verification resources under a
// service SID, form-encoded requests, basic auth).
type HTTPClient struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewHTTPClient creates a gateway client with sane timeouts
func NewHTTPClient(cfg Config) *HTTPClient {
	return &HTTPClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logging.Logger.Named("verify"),
	}
}

type verificationResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type gatewayError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// StartChallenge asks the gateway to send a code to the phone via SMS
func (c *HTTPClient) StartChallenge(ctx context.Context, phone, locale string) error {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("Channel", "sms")
	form.Set("Locale", locale)

	endpoint := fmt.Sprintf("%s/v2/Services/%s/Verifications", c.cfg.BaseURL, c.cfg.ServiceSID)
	resp, err := c.postForm(ctx, endpoint, form)
	if err != nil {
		return err
	}

	if resp.Status != StatusPending {
		c.logger.Error("challenge not accepted",
			zap.String("phone", observability.MaskPhone(phone)),
			zap.String("status", resp.Status))
		return fmt.Errorf("challenge not accepted: status %q", resp.Status)
	}

	return nil
}

// CheckChallenge submits a code for approval. A rejected code is not an
// error: the caller owns the attempt budget.
func (c *HTTPClient) CheckChallenge(ctx context.Context, phone, code string) (bool, error) {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("Code", code)

	endpoint := fmt.Sprintf("%s/v2/Services/%s/VerificationCheck", c.cfg.BaseURL, c.cfg.ServiceSID)
	resp, err := c.postForm(ctx, endpoint, form)
	if err != nil {
		// The gateway answers 404 once a challenge is consumed or expired;
		// the engine's own session state decides what to tell the user.
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return resp.Status == StatusApproved, nil
}

type notFoundError struct{ inner error }

func (e *notFoundError) Error() string { return e.inner.Error() }
func (e *notFoundError) Unwrap() error { return e.inner }

func isNotFound(err error) bool {
	_, ok := err.(*notFoundError)
	return ok
}

// postForm sends a form-encoded POST with basic auth and decodes the
// verification resource from the response
func (c *HTTPClient) postForm(ctx context.Context, endpoint string, form url.Values) (*verificationResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("gateway request failed", zap.Error(err))
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var gwErr gatewayError
		if err := json.Unmarshal(body, &gwErr); err == nil && gwErr.Message != "" {
			c.logger.Error("gateway rejected request",
				zap.Int("status_code", resp.StatusCode),
				zap.Int("error_code", gwErr.Code),
				zap.String("error_message", gwErr.Message))
			wrapped := fmt.Errorf("gateway error %d: %s", gwErr.Code, gwErr.Message)
			if resp.StatusCode == http.StatusNotFound {
				return nil, &notFoundError{inner: wrapped}
			}
			return nil, wrapped
		}
		wrapped := fmt.Errorf("gateway request failed with status: %d", resp.StatusCode)
		if resp.StatusCode == http.StatusNotFound {
			return nil, &notFoundError{inner: wrapped}
		}
		return nil, wrapped
	}

	var verification verificationResponse
	if err := json.Unmarshal(body, &verification); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &verification, nil
}
