package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shiftwise/auth-api/internal/models"
	"github.com/shiftwise/auth-api/internal/observability"
	"github.com/shiftwise/auth-api/internal/phone"
	"github.com/shiftwise/auth-api/internal/redisclient"
	"github.com/shiftwise/auth-api/internal/storage"
	"github.com/shiftwise/auth-api/internal/verify"
	"go.uber.org/zap"
)

// User-facing messages. Authentication-adjacent failures stay generic so
// responses do not reveal whether a username exists or is verified.
const (
	msgUsernameTaken    = "username already taken"
	msgPhoneTaken       = "phone number already registered"
	msgDispatchFailed   = "could not send verification code"
	msgAccountNotFound  = "account not found"
	msgAlreadyVerified  = "phone already verified"
	msgSessionExpired   = "session expired, request a new code"
	msgTooManyAttempts  = "too many attempts, request a new code"
	msgPhoneVerified    = "phone verified"
	msgLoginNotPossible = "login not possible"
	msgVerifyFirst      = "phone verification must be completed before login"
	msgLoginOK          = "login successful"
)

const profileCachePrefix = "auth:profile:"

// Sandbox is the injected integration-test bypass. The designated phone
// never reaches the delivery gateway and only the designated code is
// accepted for it. Disabled in production configuration.
type Sandbox struct {
	Enabled bool
	Phone   string
	Code    string
}

// MatchesPhone reports whether a canonical number is exactly the sandbox
// phone. The marker is normalized with the active policy when the engine is
// built, so a real number sharing the sandbox subscriber tail never matches.
func (s Sandbox) MatchesPhone(canonical string) bool {
	return s.Enabled && s.Phone != "" && canonical == s.Phone
}

// MatchesCode reports whether the submitted code is the sandbox code
func (s Sandbox) MatchesCode(code string) bool {
	return s.Enabled && code == s.Code
}

// Result is the outcome of one engine operation. Account is the verified
// account on success and nil on failure.
type Result struct {
	Succeeded bool            `json:"succeeded"`
	Message   string          `json:"message"`
	Account   *models.Account `json:"account,omitempty"`
}

func failure(message string) Result {
	return Result{Succeeded: false, Message: message}
}

func success(message string, account *models.Account) Result {
	return Result{Succeeded: true, Message: message, Account: account}
}

// AuthService orchestrates registration, OTP challenge/response and login.
// It holds no mutable state of its own: every transition lives in the
// injected stores, so concurrent requests coordinate through them.
type AuthService struct {
	accounts   storage.AccountStore
	sessions   storage.SessionStore
	attempts   storage.AttemptLog
	verifier   verify.Client
	policy     phone.Policy
	sandbox    Sandbox
	cache      *redisclient.Client
	cacheTTL   time.Duration
	sessionTTL time.Duration
	logger     *zap.Logger
}

// NewAuthService wires the engine with its collaborators. cache may be nil;
// profile reads then always hit the account store.
func NewAuthService(
	accounts storage.AccountStore,
	sessions storage.SessionStore,
	attempts storage.AttemptLog,
	verifier verify.Client,
	policy phone.Policy,
	sandbox Sandbox,
	cache *redisclient.Client,
	cacheTTL time.Duration,
	sessionTTL time.Duration,
	logger *zap.Logger,
) *AuthService {
	// The sandbox marker is configured in national form; normalize it once
	// so phone matching is an exact comparison of canonical numbers
	if sandbox.Phone != "" {
		sandbox.Phone = policy.Normalize(sandbox.Phone)
	}
	return &AuthService{
		accounts:   accounts,
		sessions:   sessions,
		attempts:   attempts,
		verifier:   verifier,
		policy:     policy,
		sandbox:    sandbox,
		cache:      cache,
		cacheTTL:   cacheTTL,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Register creates an account with an unverified phone and dispatches the
// first registration code. If the dispatch fails the account is deleted
// again so no unverifiable orphan survives the call.
func (s *AuthService) Register(ctx context.Context, username, rawPhone string) (Result, error) {
	canonical := s.policy.Normalize(rawPhone)
	if !s.sandbox.MatchesPhone(canonical) && !s.policy.Validate(canonical) {
		return failure(s.policy.FormatHint()), nil
	}

	if _, err := s.accounts.FindByUsername(ctx, username); err == nil {
		return failure(msgUsernameTaken), nil
	} else if err != models.ErrAccountNotFound {
		return Result{}, err
	}

	if _, err := s.accounts.FindByPhone(ctx, canonical); err == nil {
		return failure(msgPhoneTaken), nil
	} else if err != models.ErrAccountNotFound {
		return Result{}, err
	}

	account := &models.Account{
		Username:      username,
		Phone:         canonical,
		PhoneVerified: false,
		Active:        true,
		CreatedAt:     time.Now(),
	}
	if err := s.accounts.Insert(ctx, account); err != nil {
		// The unique indexes close the race between the lookups above and
		// this insert; report the conflict, not a storage fault.
		switch err {
		case models.ErrAccountExists:
			return failure(msgUsernameTaken), nil
		case models.ErrPhoneExists:
			return failure(msgPhoneTaken), nil
		}
		return Result{}, err
	}

	if err := s.openSession(ctx, username, canonical, models.FlowRegistration); err != nil {
		s.logger.Warn("code dispatch failed, rolling back account",
			zap.String("username", username),
			zap.String("phone", observability.MaskPhone(canonical)),
			zap.Error(err))
		if delErr := s.accounts.Delete(ctx, username); delErr != nil {
			s.logger.Error("account rollback failed",
				zap.String("username", username), zap.Error(delErr))
			return Result{}, delErr
		}
		return failure(msgDispatchFailed), nil
	}

	return success(
		fmt.Sprintf("verification code sent to %s", observability.MaskPhone(canonical)),
		nil,
	), nil
}

// ResendVerification purges stale registration sessions and dispatches a
// fresh code to the phone stored on the account
func (s *AuthService) ResendVerification(ctx context.Context, username string) (Result, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if err == models.ErrAccountNotFound {
			return failure(msgAccountNotFound), nil
		}
		return Result{}, err
	}
	if account.PhoneVerified {
		return failure(msgAlreadyVerified), nil
	}

	if err := s.sessions.DeleteAll(ctx, username, models.FlowRegistration); err != nil {
		return Result{}, err
	}

	if err := s.openSession(ctx, username, account.Phone, models.FlowRegistration); err != nil {
		s.logger.Warn("code dispatch failed on resend",
			zap.String("username", username), zap.Error(err))
		return failure(msgDispatchFailed), nil
	}

	return success(
		fmt.Sprintf("verification code sent to %s", observability.MaskPhone(account.Phone)),
		nil,
	), nil
}

// VerifyRegistration checks a submitted registration code against the most
// recent session and flips phone_verified on approval
func (s *AuthService) VerifyRegistration(ctx context.Context, username, code string) (Result, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if err == models.ErrAccountNotFound {
			return failure(msgAccountNotFound), nil
		}
		return Result{}, err
	}
	if account.PhoneVerified {
		return failure(msgAlreadyVerified), nil
	}

	session, res, err := s.currentSession(ctx, username, models.FlowRegistration)
	if session == nil {
		return res, err
	}

	approved, err := s.checkCode(ctx, account.Phone, code, models.FlowRegistration)
	if err != nil {
		return Result{}, err
	}

	if approved {
		if err := s.accounts.SetPhoneVerified(ctx, username); err != nil {
			return Result{}, err
		}
		if err := s.sessions.Delete(ctx, session.ID); err != nil {
			return Result{}, err
		}
		s.invalidateProfile(ctx, username)
		account.PhoneVerified = true
		return success(msgPhoneVerified, account), nil
	}

	return s.recordRejection(ctx, session)
}

// RequestLogin is the entry point of the login flow. A verified account
// logs in directly; no code is dispatched from this path.
func (s *AuthService) RequestLogin(ctx context.Context, username string) (Result, error) {
	account, err := s.accounts.FindActive(ctx, username)
	if err != nil {
		if err == models.ErrAccountNotFound {
			return failure(msgLoginNotPossible), nil
		}
		return Result{}, err
	}

	if !account.PhoneVerified {
		return failure(msgVerifyFirst), nil
	}

	if err := s.completeLogin(ctx, account, ""); err != nil {
		return Result{}, err
	}
	return success(msgLoginOK, account), nil
}

// Login checks a submitted login code. The caller must hold a live login
// session; unknown and unverified usernames fail with the same message.
func (s *AuthService) Login(ctx context.Context, username, code, sourceAddress string) (Result, error) {
	account, err := s.accounts.FindLoginCandidate(ctx, username)
	if err != nil {
		if err == models.ErrAccountNotFound {
			observability.LoginAttempts.WithLabelValues("failure").Inc()
			if logErr := s.attempts.Record(ctx, &models.LoginAttempt{
				Username:      username,
				Timestamp:     time.Now(),
				Success:       false,
				SourceAddress: sourceAddress,
			}); logErr != nil {
				return Result{}, logErr
			}
			return failure(msgLoginNotPossible), nil
		}
		return Result{}, err
	}

	session, res, err := s.currentSession(ctx, username, models.FlowLogin)
	if session == nil {
		return res, err
	}

	approved, err := s.checkCode(ctx, account.Phone, code, models.FlowLogin)
	if err != nil {
		return Result{}, err
	}

	if approved {
		if err := s.sessions.Delete(ctx, session.ID); err != nil {
			return Result{}, err
		}
		if err := s.completeLogin(ctx, account, sourceAddress); err != nil {
			return Result{}, err
		}
		return success(msgLoginOK, account), nil
	}

	observability.LoginAttempts.WithLabelValues("failure").Inc()
	if err := s.attempts.Record(ctx, &models.LoginAttempt{
		Username:      username,
		Phone:         account.Phone,
		Timestamp:     time.Now(),
		Success:       false,
		SourceAddress: sourceAddress,
	}); err != nil {
		return Result{}, err
	}

	return s.recordRejection(ctx, session)
}

// Profile returns the caller's public profile, served from the Redis cache
// when possible
func (s *AuthService) Profile(ctx context.Context, username string) (*models.AccountProfile, error) {
	key := profileCachePrefix + username

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			var profile models.AccountProfile
			if err := json.Unmarshal([]byte(cached), &profile); err == nil {
				observability.CacheHits.WithLabelValues("hit").Inc()
				return &profile, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("profile cache read failed",
				zap.String("username", username), zap.Error(err))
		}
		observability.CacheHits.WithLabelValues("miss").Inc()
	}

	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	profile := account.Profile()

	if s.cache != nil {
		if payload, err := json.Marshal(profile); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("profile cache write failed",
					zap.String("username", username), zap.Error(err))
			}
		}
	}

	return &profile, nil
}

// Accounts lists all accounts as public profiles
func (s *AuthService) Accounts(ctx context.Context) ([]models.AccountProfile, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]models.AccountProfile, 0, len(accounts))
	for i := range accounts {
		profiles = append(profiles, accounts[i].Profile())
	}
	return profiles, nil
}

// History returns the caller's most recent login attempts, newest first
func (s *AuthService) History(ctx context.Context, username string, limit int) ([]models.LoginAttempt, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.attempts.History(ctx, username, limit)
}

// openSession dispatches a code for the flow and records the session. The
// sandbox phone skips the gateway but still gets a real session, so expiry
// and the attempt budget apply to it as well.
func (s *AuthService) openSession(ctx context.Context, username, canonical string, flow models.Flow) error {
	if s.sandbox.MatchesPhone(canonical) {
		observability.OTPDispatches.WithLabelValues(string(flow), "sandbox").Inc()
	} else {
		if err := s.verifier.StartChallenge(ctx, canonical, phone.SMSLocale(canonical)); err != nil {
			observability.OTPDispatches.WithLabelValues(string(flow), "failure").Inc()
			return err
		}
		observability.OTPDispatches.WithLabelValues(string(flow), "success").Inc()
	}

	now := time.Now()
	return s.sessions.Insert(ctx, &models.VerificationSession{
		Username:    username,
		Phone:       canonical,
		Flow:        flow,
		RequestedAt: now,
		ExpiresAt:   now.Add(s.sessionTTL),
		Attempts:    0,
	})
}

// currentSession loads the authoritative session for the pair. A nil
// session means the returned Result (or error) is final.
func (s *AuthService) currentSession(ctx context.Context, username string, flow models.Flow) (*models.VerificationSession, Result, error) {
	session, err := s.sessions.Latest(ctx, username, flow)
	if err != nil {
		if err == models.ErrSessionNotFound {
			return nil, failure(msgSessionExpired), nil
		}
		return nil, Result{}, err
	}
	if session.Expired(time.Now()) {
		return nil, failure(msgSessionExpired), nil
	}
	return session, Result{}, nil
}

// checkCode decides whether a submitted code is approved. The sandbox phone
// is never sent to the gateway: only the sandbox code passes, and wrong
// codes burn the attempt budget like any other rejection.
func (s *AuthService) checkCode(ctx context.Context, canonical, code string, flow models.Flow) (bool, error) {
	var approved bool
	if s.sandbox.MatchesPhone(canonical) {
		approved = s.sandbox.MatchesCode(code)
	} else {
		var err error
		approved, err = s.verifier.CheckChallenge(ctx, canonical, code)
		if err != nil {
			observability.VerificationChecks.WithLabelValues(string(flow), "error").Inc()
			return false, err
		}
	}

	if approved {
		observability.VerificationChecks.WithLabelValues(string(flow), "approved").Inc()
	} else {
		observability.VerificationChecks.WithLabelValues(string(flow), "rejected").Inc()
	}
	return approved, nil
}

// recordRejection burns one attempt and deletes the session once the budget
// is spent. The increment is conditional in the store, so racing rejections
// cannot push the counter past the cap.
func (s *AuthService) recordRejection(ctx context.Context, session *models.VerificationSession) (Result, error) {
	attempts, err := s.sessions.IncrementAttempts(ctx, session.ID, models.MaxVerificationAttempts)
	if err != nil {
		if err == models.ErrAttemptsExhausted {
			return failure(msgTooManyAttempts), nil
		}
		return Result{}, err
	}

	if attempts >= models.MaxVerificationAttempts {
		if err := s.sessions.Delete(ctx, session.ID); err != nil {
			return Result{}, err
		}
		return failure(msgTooManyAttempts), nil
	}

	return failure(fmt.Sprintf("incorrect code (%d attempts remaining)",
		models.MaxVerificationAttempts-attempts)), nil
}

// completeLogin applies the successful-login side effects: last_login_at,
// the audit record and the profile cache invalidation
func (s *AuthService) completeLogin(ctx context.Context, account *models.Account, sourceAddress string) error {
	now := time.Now()
	if err := s.accounts.SetLastLogin(ctx, account.ID, now); err != nil {
		return err
	}
	account.LastLoginAt = &now

	if err := s.attempts.Record(ctx, &models.LoginAttempt{
		Username:      account.Username,
		Phone:         account.Phone,
		Timestamp:     now,
		Success:       true,
		SourceAddress: sourceAddress,
	}); err != nil {
		return err
	}

	observability.LoginAttempts.WithLabelValues("success").Inc()
	s.invalidateProfile(ctx, account.Username)
	return nil
}

// invalidateProfile drops the cached profile after a write. Best effort:
// the cache entry expires on its own TTL anyway.
func (s *AuthService) invalidateProfile(ctx context.Context, username string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, profileCachePrefix+username).Err(); err != nil {
		s.logger.Warn("profile cache invalidation failed",
			zap.String("username", username), zap.Error(err))
	}
}
