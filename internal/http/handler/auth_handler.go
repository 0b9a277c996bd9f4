// Package handler exposes the authorization flow over HTTP.
package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/portal-auth/internal/cors"
	"github.com/smallbiznis/portal-auth/internal/domain/oauth"
	"github.com/smallbiznis/portal-auth/internal/service"
)

// AuthHandler binds the authorization and token endpoints.
type AuthHandler struct {
	authz    *service.AuthorizationService
	sessions *service.SessionService
	resolver *cors.Resolver
	logger   *zap.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authz *service.AuthorizationService, sessions *service.SessionService, resolver *cors.Resolver, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &AuthHandler{authz: authz, sessions: sessions, resolver: resolver, logger: logger}
}

// Authorize handles GET /oauth/authorize. SDK callers asking for JSON get the
// pending request id back; browser navigations are redirected straight to the
// upstream provider.
func (h *AuthHandler) Authorize(c *gin.Context) {
	projectID, _ := strconv.ParseInt(c.Query("project_id"), 10, 64)
	in := service.AuthorizeInput{
		PublicKey:           firstNonEmpty(c.Query("public_key"), c.Query("client_id")),
		ProjectID:           projectID,
		RedirectURI:         c.Query("redirect_uri"),
		Provider:            c.Query("provider"),
		ResponseType:        c.Query("response_type"),
		State:               c.Query("state"),
		CodeChallenge:       c.Query("code_challenge"),
		CodeChallengeMethod: c.Query("code_challenge_method"),
	}

	out, err := h.authz.Authorize(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if wantsJSON(c) || out.ProviderAuthURL == "" {
		c.JSON(http.StatusOK, gin.H{
			"request_id":        out.RequestID,
			"provider":          out.Provider,
			"provider_auth_url": out.ProviderAuthURL,
		})
		return
	}
	c.Redirect(http.StatusFound, out.ProviderAuthURL)
}

type loginRequest struct {
	RequestID string `json:"request_id" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

// LocalLogin handles POST /auth/login for the built-in email/password
// provider.
func (h *AuthHandler) LocalLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, oauth.ErrInvalidRequest)
		return
	}

	result, err := h.authz.LocalLogin(c.Request.Context(), req.RequestID, req.Email, req.Password, requestMeta(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCompletion(c, result)
}

type verifyRequest struct {
	RequestID string `json:"request_id" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Code      string `json:"code" binding:"required"`
}

// Verify handles POST /auth/verify: checks the emailed code and resumes the
// pending authorization request.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, oauth.ErrInvalidRequest)
		return
	}

	result, err := h.authz.VerifyEmail(c.Request.Context(), req.RequestID, req.Email, req.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCompletion(c, result)
}

// ProviderCallback handles GET /oauth/callback/:provider. The state parameter
// carries the pending request id for SDK flows.
func (h *AuthHandler) ProviderCallback(c *gin.Context) {
	providerName := c.Param("provider")
	code := c.Query("code")
	state := c.Query("state")

	if errCode := c.Query("error"); errCode != "" {
		h.logger.Warn("provider callback returned error",
			zap.String("provider", providerName), zap.String("error", errCode))
		h.respondError(c, oauth.ErrInvalidRequest)
		return
	}

	requestID, ok := requestIDFromState(state)
	if !ok {
		// Providers that do not round-trip state rely on an explicit
		// request_id parameter.
		requestID = c.Query("request_id")
	}
	if requestID == "" {
		h.respondError(c, oauth.ErrInvalidRequest)
		return
	}

	result, err := h.authz.HandleProviderCallback(c.Request.Context(), service.ProviderCallbackInput{
		RequestID: requestID,
		Provider:  providerName,
		Code:      code,
		Meta:      requestMeta(c),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if result.VerificationRequired {
		h.respondCompletion(c, result)
		return
	}
	c.Redirect(http.StatusFound, callbackRedirect(result))
}

type tokenRequest struct {
	GrantType    string `json:"grant_type" form:"grant_type"`
	Code         string `json:"code" form:"code"`
	CodeVerifier string `json:"code_verifier" form:"code_verifier"`
	ClientID     string `json:"client_id" form:"client_id"`
}

// Token handles POST /oauth/token: redeems a single-use code for tokens.
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		h.respondError(c, oauth.ErrInvalidRequest)
		return
	}
	if req.GrantType != "" && req.GrantType != "authorization_code" {
		h.respondError(c, oauth.ErrInvalidGrant)
		return
	}

	result, err := h.authz.Exchange(c.Request.Context(), service.ExchangeInput{
		Code:         req.Code,
		CodeVerifier: req.CodeVerifier,
		ClientID:     req.ClientID,
		Origin:       c.GetHeader("Origin"),
		Meta:         requestMeta(c),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token" binding:"required"`
}

// Refresh handles POST /oauth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBind(&req); err != nil {
		h.respondError(c, oauth.ErrInvalidGrant)
		return
	}

	pair, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken, c.GetHeader("Origin"), requestMeta(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Revoke handles POST /oauth/revoke. Always 200 on well-formed input:
// revoking an unknown token is a no-op.
func (h *AuthHandler) Revoke(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBind(&req); err != nil {
		h.respondError(c, oauth.ErrInvalidRequest)
		return
	}

	if err := h.sessions.Revoke(c.Request.Context(), req.RefreshToken); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": true})
}

// InvalidateOrigins handles DELETE /internal/origins/:public_key. The project
// CRUD service calls it after an allowlist edit so the change takes effect
// before the cache TTL lapses.
func (h *AuthHandler) InvalidateOrigins(c *gin.Context) {
	h.resolver.Invalidate(c.Request.Context(), c.Param("public_key"))
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) respondCompletion(c *gin.Context, result *service.CompletionResult) {
	if result.VerificationRequired {
		c.JSON(http.StatusOK, gin.H{"verification_required": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":         result.Code,
		"redirect_uri": result.RedirectURI,
		"state":        result.State,
		"redirect_url": callbackRedirect(result),
	})
}

func (h *AuthHandler) respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "server_error"
	switch {
	case errors.Is(err, oauth.ErrInvalidRequest):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, oauth.ErrRequestExpired):
		status, code = http.StatusBadRequest, "request_expired"
	case errors.Is(err, oauth.ErrInvalidGrant):
		status, code = http.StatusBadRequest, "invalid_grant"
	case errors.Is(err, oauth.ErrVerificationCodeMismatch):
		status, code = http.StatusBadRequest, "invalid_verification_code"
	case errors.Is(err, oauth.ErrInvalidClient):
		status, code = http.StatusBadRequest, "invalid_client"
	case errors.Is(err, oauth.ErrOriginNotAllowed):
		status, code = http.StatusForbidden, "access_denied"
		// The CORS middleware cannot resolve the tenant for body-keyed
		// endpoints and may have already echoed the origin. A rejected
		// origin must never receive an Access-Control-Allow-Origin header.
		c.Writer.Header().Del("Access-Control-Allow-Origin")
	case errors.Is(err, oauth.ErrProjectNotFound):
		status, code = http.StatusNotFound, "project_not_found"
	case errors.Is(err, oauth.ErrProviderNotFound):
		status, code = http.StatusNotFound, "provider_not_found"
	case errors.Is(err, oauth.ErrDuplicateCallback):
		status, code = http.StatusConflict, "duplicate_callback"
	}

	description := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		description = "An internal error occurred."
	}
	c.JSON(status, gin.H{"error": code, "error_description": description})
}

// callbackRedirect builds the redirect back to the application with the
// issued code and echoed state.
func callbackRedirect(result *service.CompletionResult) string {
	target, err := url.Parse(result.RedirectURI)
	if err != nil {
		return result.RedirectURI
	}
	query := target.Query()
	query.Set("code", result.Code)
	if result.State != "" {
		query.Set("state", result.State)
	}
	target.RawQuery = query.Encode()
	return target.String()
}

// requestIDFromState recovers the pending request id from the state value the
// adapter encoded on the way out.
func requestIDFromState(state string) (string, bool) {
	if id, ok := strings.CutPrefix(state, "sdk:"); ok && id != "" {
		return id, true
	}
	return "", false
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
