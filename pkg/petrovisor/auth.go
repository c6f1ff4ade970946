package petrovisor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	oauthClientID = "petrovisor.python.client"
	oauthScope    = "petrovisor.api"

	// tokens expiring within this window are renewed before use
	expiryLeeway = 30 * time.Second
)

var knownDiscoveryURLs = []string{
	"https://identity-latest.eu1.petrovisor.com",
	"https://identity.eu1.petrovisor.com",
	"https://identity-latest.us1.petrovisor.com",
	"https://identity.us1.petrovisor.com",
}

// KnownDiscoveryURLs returns the public identity services.
func KnownDiscoveryURLs() []string {
	return append([]string(nil), knownDiscoveryURLs...)
}

// Discovery is the subset of the OpenID discovery document the client uses.
type Discovery struct {
	TokenEndpoint  string `json:"token_endpoint"`
	WebAPIEndpoint string `json:"petrovisor_webapi_endpoint"`
}

// DiscoveryDocument fetches <discoveryURL>/.well-known/openid-configuration.
func DiscoveryDocument(ctx context.Context, hc *http.Client, discoveryURL string) (*Discovery, error) {
	if discoveryURL == "" {
		return nil, ErrNoDiscoveryURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	u := strings.TrimSuffix(discoveryURL, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discovery: do request: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError("discovery", resp.StatusCode, messageOf(resp, body))
	}
	var doc Discovery
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &DecodeError{Operation: "discovery", Body: body, Err: err}
	}
	return &doc, nil
}

// EncodeKey builds a credentials key from a username and password.
// It returns "" unless both are set.
func EncodeKey(username, password string) string {
	if username == "" || password == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// DecodeKey recovers the username and password from a credentials key.
// Missing padding and the URL-safe alphabet are accepted.
func DecodeKey(key string) (username, password string, err error) {
	key = strings.TrimSpace(key)
	if pad := len(key) % 4; pad != 0 {
		key += strings.Repeat("=", 4-pad)
	}
	enc := base64.StdEncoding
	if strings.ContainsAny(key, "-_") {
		enc = base64.URLEncoding
	}
	raw, err := enc.DecodeString(key)
	if err != nil {
		return "", "", fmt.Errorf("petrovisor: decode key: %w", err)
	}
	user, pass, ok := strings.Cut(string(raw), ":")
	if !ok || user == "" {
		return "", "", fmt.Errorf("petrovisor: key does not hold username and password")
	}
	return user, pass, nil
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Refresh acquires a new access token, from the key when one is known and
// from the refresh token otherwise. Concurrent calls share one request.
func (c *Client) Refresh(ctx context.Context) error {
	_, err, _ := c.refreshes.Do("token", func() (any, error) {
		return nil, c.refresh(ctx)
	})
	return err
}

func (c *Client) canRefresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key != "" || c.refreshToken != ""
}

func (c *Client) refresh(ctx context.Context) error {
	if c.tokenEndpoint == "" {
		doc, err := DiscoveryDocument(ctx, c.httpClient, c.discoveryURL)
		if err != nil {
			return err
		}
		c.tokenEndpoint = doc.TokenEndpoint
	}

	form := url.Values{
		"client_id": {oauthClientID},
		"scope":     {oauthScope},
	}
	c.mu.RLock()
	key, refreshToken := c.key, c.refreshToken
	c.mu.RUnlock()
	switch {
	case key != "":
		user, pass, err := DecodeKey(key)
		if err != nil {
			return err
		}
		form.Set("grant_type", "password")
		form.Set("username", user)
		form.Set("password", pass)
	case refreshToken != "":
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", refreshToken)
	default:
		return ErrNoCredentials
	}

	tr, err := c.requestToken(ctx, form)
	c.metrics.tokenRefresh(err)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.token = tr.AccessToken
	if tr.RefreshToken != "" {
		c.refreshToken = tr.RefreshToken
	}
	c.expiry = tokenExpiry(tr.AccessToken)
	if c.expiry.IsZero() && tr.ExpiresIn > 0 {
		c.expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	c.mu.Unlock()
	c.logger.DebugContext(ctx, "token acquired", "grant_type", form.Get("grant_type"))
	return nil
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("token: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token: do request: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	var tr tokenResponse
	_ = json.Unmarshal(body, &tr)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || tr.AccessToken == "" {
		return nil, &AuthError{StatusCode: resp.StatusCode, Code: tr.Error, Description: tr.ErrorDescription}
	}
	return &tr, nil
}

// currentToken returns the access token, renewing it first when it is
// about to expire and can be renewed.
func (c *Client) currentToken(ctx context.Context) string {
	c.mu.RLock()
	token, expiry := c.token, c.expiry
	c.mu.RUnlock()
	if expiry.IsZero() || time.Until(expiry) > expiryLeeway || !c.canRefresh() {
		return token
	}
	if err := c.Refresh(ctx); err != nil {
		c.logger.WarnContext(ctx, "proactive token refresh failed", "error", err)
		return token
	}
	return c.Token()
}

// tokenExpiry reads the exp claim of a JWT access token without verifying
// it. Opaque tokens yield the zero time.
func tokenExpiry(token string) time.Time {
	if strings.Count(token, ".") != 2 {
		return time.Time{}
	}
	t, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := t.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
