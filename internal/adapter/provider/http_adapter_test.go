package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/portal-auth/internal/domain/oauth"
)

func TestGetAuthURLEncodesState(t *testing.T) {
	adapter := NewHTTPAdapter(Config{
		Name:        "github",
		ClientID:    "client-1",
		AuthURL:     "https://github.example.com/login/oauth/authorize",
		RedirectURL: "https://auth.example.com/oauth/callback/github",
		Scopes:      []string{"read:user"},
	}, nil)

	raw, err := adapter.GetAuthURL(context.Background(), oauth.AuthContext{
		Kind:         oauth.AuthContextSDK,
		SDKRequestID: "req-123",
	})
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	query := parsed.Query()
	require.Equal(t, "client-1", query.Get("client_id"))
	require.Equal(t, "code", query.Get("response_type"))
	require.Equal(t, "sdk:req-123", query.Get("state"))
	require.Equal(t, "read:user", query.Get("scope"))
}

func TestGetAuthURLContextKinds(t *testing.T) {
	adapter := NewHTTPAdapter(Config{AuthURL: "https://idp.example.com/authorize"}, nil)
	ctx := context.Background()

	raw, err := adapter.GetAuthURL(ctx, oauth.AuthContext{Kind: oauth.AuthContextCLI})
	require.NoError(t, err)
	require.Contains(t, raw, "state=cli")

	raw, err = adapter.GetAuthURL(ctx, oauth.AuthContext{Kind: oauth.AuthContextDev})
	require.NoError(t, err)
	require.Contains(t, raw, "state=dev")

	// SDK without a request id has nothing for the callback to resume.
	_, err = adapter.GetAuthURL(ctx, oauth.AuthContext{Kind: oauth.AuthContextSDK})
	require.Error(t, err)

	_, err = adapter.GetAuthURL(ctx, oauth.AuthContext{Kind: "unknown"})
	require.Error(t, err)
}

func TestExchangeCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		require.Equal(t, "provider-code", r.Form.Get("code"))
		require.Equal(t, "client-1", r.Form.Get("client_id"))
		require.Equal(t, "shh", r.Form.Get("client_secret"))
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "upstream-token"})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer upstream-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"sub":     "gh-42",
			"email":   "Dev@Example.com",
			"login":   "octodev",
			"picture": "https://cdn.example.com/a.png",
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	adapter := NewHTTPAdapter(Config{
		Name:         "github",
		ClientID:     "client-1",
		ClientSecret: "shh",
		TokenURL:     server.URL + "/token",
		UserInfoURL:  server.URL + "/userinfo",
	}, server.Client())

	profile, err := adapter.ExchangeCode(context.Background(), "provider-code")
	require.NoError(t, err)
	require.Equal(t, "gh-42", profile.ProviderUserID)
	require.Equal(t, "dev@example.com", profile.Email)
	require.Equal(t, "octodev", profile.Username)
	require.Equal(t, "https://cdn.example.com/a.png", profile.Picture)
}

func TestExchangeCodeTokenFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad code", http.StatusBadRequest)
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(Config{
		Name:        "github",
		TokenURL:    server.URL,
		UserInfoURL: server.URL,
	}, server.Client())

	_, err := adapter.ExchangeCode(context.Background(), "provider-code")
	require.Error(t, err)
}

func TestExchangeCodeMissingSubject(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "upstream-token"})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"email": "dev@example.com"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	adapter := NewHTTPAdapter(Config{
		Name:        "github",
		TokenURL:    server.URL + "/token",
		UserInfoURL: server.URL + "/userinfo",
	}, server.Client())

	_, err := adapter.ExchangeCode(context.Background(), "provider-code")
	require.Error(t, err)
}

func TestRegistryCaseInsensitive(t *testing.T) {
	registry := NewRegistry()
	adapter := NewHTTPAdapter(Config{Name: "GitHub"}, nil)
	registry.Register("GitHub", adapter)

	got, ok := registry.Adapter("github")
	require.True(t, ok)
	require.Same(t, adapter, got)

	_, ok = registry.Adapter("gitlab")
	require.False(t, ok)
}
