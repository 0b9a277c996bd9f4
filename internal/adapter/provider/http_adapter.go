package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/portal-auth/internal/domain/oauth"
)

// Config describes one upstream identity provider endpoint set.
type Config struct {
	Name         string   `json:"name"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURL      string   `json:"auth_url"`
	TokenURL     string   `json:"token_url"`
	UserInfoURL  string   `json:"userinfo_url"`
	RedirectURL  string   `json:"redirect_url"`
	Scopes       []string `json:"scopes"`
}

// HTTPAdapter is the default Adapter implementation speaking the common
// OAuth2 code-exchange and userinfo shape over HTTP.
type HTTPAdapter struct {
	cfg        Config
	httpClient *http.Client
}

var _ Adapter = (*HTTPAdapter)(nil)

// NewHTTPAdapter constructs an adapter for one provider config.
func NewHTTPAdapter(cfg Config, client *http.Client) *HTTPAdapter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPAdapter{cfg: cfg, httpClient: client}
}

// GetAuthURL builds the provider authorization URL. The state parameter
// encodes the flow origin so the callback can route it; SDK flows carry the
// pending authorization request id.
func (a *HTTPAdapter) GetAuthURL(_ context.Context, authCtx oauth.AuthContext) (string, error) {
	authURL, err := url.Parse(a.cfg.AuthURL)
	if err != nil {
		return "", fmt.Errorf("parse auth url: %w", err)
	}

	var state string
	switch authCtx.Kind {
	case oauth.AuthContextSDK:
		if strings.TrimSpace(authCtx.SDKRequestID) == "" {
			return "", fmt.Errorf("sdk auth context requires a request id")
		}
		state = "sdk:" + authCtx.SDKRequestID
	case oauth.AuthContextCLI:
		state = "cli"
	case oauth.AuthContextDev:
		state = "dev"
	default:
		return "", fmt.Errorf("unknown auth context kind %q", authCtx.Kind)
	}

	scopes := a.cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}

	params := authURL.Query()
	params.Set("client_id", a.cfg.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", a.cfg.RedirectURL)
	params.Set("scope", strings.Join(scopes, " "))
	params.Set("state", state)
	authURL.RawQuery = params.Encode()
	return authURL.String(), nil
}

// ExchangeCode trades the provider's authorization code for a normalized
// profile: token exchange followed by a userinfo fetch.
func (a *HTTPAdapter) ExchangeCode(ctx context.Context, code string) (*oauth.Profile, error) {
	accessToken, err := a.exchangeToken(ctx, code)
	if err != nil {
		return nil, err
	}
	return a.fetchProfile(ctx, accessToken)
}

func (a *HTTPAdapter) exchangeToken(ctx context.Context, code string) (string, error) {
	if strings.TrimSpace(a.cfg.TokenURL) == "" {
		return "", fmt.Errorf("token url missing for provider %s", a.cfg.Name)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", a.cfg.RedirectURL)
	form.Set("client_id", a.cfg.ClientID)
	if a.cfg.ClientSecret != "" {
		form.Set("client_secret", a.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("token exchange failed: status=%d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return "", fmt.Errorf("provider returned empty access token")
	}
	return payload.AccessToken, nil
}

func (a *HTTPAdapter) fetchProfile(ctx context.Context, accessToken string) (*oauth.Profile, error) {
	if strings.TrimSpace(a.cfg.UserInfoURL) == "" {
		return nil, fmt.Errorf("userinfo url missing for provider %s", a.cfg.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read userinfo response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("userinfo fetch failed: status=%d", resp.StatusCode)
	}

	var raw struct {
		Sub      string `json:"sub"`
		ID       string `json:"id"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		Login    string `json:"login"`
		Picture  string `json:"picture"`
		Avatar   string `json:"avatar_url"`
		Username string `json:"preferred_username"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode userinfo response: %w", err)
	}

	profile := &oauth.Profile{
		ProviderUserID: firstNonEmpty(raw.Sub, raw.ID),
		Email:          strings.ToLower(strings.TrimSpace(raw.Email)),
		Username:       firstNonEmpty(raw.Username, raw.Login, raw.Name),
		Picture:        firstNonEmpty(raw.Picture, raw.Avatar),
	}
	if profile.ProviderUserID == "" {
		return nil, fmt.Errorf("provider profile missing subject")
	}
	return profile, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
