package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shiftwise/auth-api/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	if logging.Logger == nil {
		if err := logging.InitLogger(); err != nil {
			panic(err)
		}
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewHTTPClient(Config{
		BaseURL:    server.URL,
		AccountSID: "ACxxx",
		AuthToken:  "secret",
		ServiceSID: "VAxxx",
	})
}

func TestStartChallengePending(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/Services/VAxxx/Verifications", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "ACxxx", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+972501234567", r.PostForm.Get("To"))
		assert.Equal(t, "sms", r.PostForm.Get("Channel"))
		assert.Equal(t, "he", r.PostForm.Get("Locale"))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"VE123","status":"pending"}`))
	})

	err := client.StartChallenge(context.Background(), "+972501234567", "he")
	assert.NoError(t, err)
}

func TestStartChallengeNotPending(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sid":"VE123","status":"canceled"}`))
	})

	err := client.StartChallenge(context.Background(), "+972501234567", "he")
	assert.Error(t, err)
}

func TestStartChallengeGatewayError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"code":60203,"message":"Max send attempts reached"}`))
	})

	err := client.StartChallenge(context.Background(), "+972501234567", "he")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "60203")
}

func TestCheckChallengeApproved(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/Services/VAxxx/VerificationCheck", r.URL.Path)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+972501234567", r.PostForm.Get("To"))
		assert.Equal(t, "424242", r.PostForm.Get("Code"))

		w.Write([]byte(`{"sid":"VE123","status":"approved"}`))
	})

	approved, err := client.CheckChallenge(context.Background(), "+972501234567", "424242")
	require.NoError(t, err)
	assert.True(t, approved)
}

func TestCheckChallengeRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sid":"VE123","status":"pending"}`))
	})

	approved, err := client.CheckChallenge(context.Background(), "+972501234567", "000000")
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestCheckChallengeConsumedIsRejection(t *testing.T) {
	// Once a challenge is approved or expired the gateway answers 404; the
	// engine's session state decides the user-facing message, so the client
	// reports a plain rejection.
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":20404,"message":"The requested resource was not found"}`))
	})

	approved, err := client.CheckChallenge(context.Background(), "+972501234567", "424242")
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestCheckChallengeGatewayDown(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.CheckChallenge(context.Background(), "+972501234567", "424242")
	assert.Error(t, err)
}
