package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/portal-auth/internal/domain/oauth"
	"github.com/smallbiznis/portal-auth/internal/service"
)

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(nil, nil, nil, zap.NewNop())

	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{oauth.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
		{fmt.Errorf("%w: redirect_uri is required", oauth.ErrInvalidRequest), http.StatusBadRequest, "invalid_request"},
		{oauth.ErrRequestExpired, http.StatusBadRequest, "request_expired"},
		{oauth.ErrInvalidGrant, http.StatusBadRequest, "invalid_grant"},
		{oauth.ErrVerificationCodeMismatch, http.StatusBadRequest, "invalid_verification_code"},
		{oauth.ErrInvalidClient, http.StatusBadRequest, "invalid_client"},
		{oauth.ErrOriginNotAllowed, http.StatusForbidden, "access_denied"},
		{oauth.ErrProjectNotFound, http.StatusNotFound, "project_not_found"},
		{oauth.ErrProviderNotFound, http.StatusNotFound, "provider_not_found"},
		{oauth.ErrDuplicateCallback, http.StatusConflict, "duplicate_callback"},
		{errors.New("pool exhausted"), http.StatusInternalServerError, "server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.respondError(c, tt.err)

			require.Equal(t, tt.wantStatus, rec.Code)
			require.Contains(t, rec.Body.String(), tt.wantCode)
		})
	}
}

func TestRespondErrorStripsEchoedOriginOnRejection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(nil, nil, nil, zap.NewNop())

	// Token and refresh carry the tenant key in the body, so the CORS
	// middleware resolves no allowlist and echoes the origin before the
	// service-level check can reject it.
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/oauth/token", nil)
	c.Request.Header.Set("Origin", "https://evil.example.com")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "https://evil.example.com")

	h.respondError(c, oauth.ErrOriginNotAllowed)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Body.String(), "access_denied")
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(nil, nil, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.respondError(c, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestRequestIDFromState(t *testing.T) {
	id, ok := requestIDFromState("sdk:req-123")
	require.True(t, ok)
	require.Equal(t, "req-123", id)

	for _, state := range []string{"", "sdk:", "cli", "dev", "req-123"} {
		_, ok := requestIDFromState(state)
		require.False(t, ok, "state %q", state)
	}
}

func TestCallbackRedirect(t *testing.T) {
	got := callbackRedirect(&service.CompletionResult{
		Code:        "abc123",
		RedirectURI: "https://app.example.com/callback?keep=1",
		State:       "client state",
	})
	require.Equal(t, "https://app.example.com/callback?code=abc123&keep=1&state=client+state", got)

	// No state parameter is appended when the client sent none.
	got = callbackRedirect(&service.CompletionResult{
		Code:        "abc123",
		RedirectURI: "https://app.example.com/callback",
	})
	require.Equal(t, "https://app.example.com/callback?code=abc123", got)
}
