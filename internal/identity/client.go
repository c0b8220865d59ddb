package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrGrantRejected marks a definitive provider refusal (bad credentials,
// unknown user, revoked refresh token) as opposed to a transport failure.
// The refresh loop signs the session out on rejection but retries on
// anything else.
var ErrGrantRejected = errors.New("identity: grant rejected")

// Client is a stateless HTTP client for the identity provider's auth API.
// One Client is shared by all sessions; per-session state (the current token
// pair and its refresh timer) lives in Transport.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a Client for the given provider base URL and API key.
// The HTTP client carries no timeout of its own: callers bound every grant
// with a context or race it against a timer, and the login fallback depends
// on being able to outwait the primary path.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{},
	}
}

// tokenResponse mirrors the provider's token endpoint payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *User  `json:"user"`
}

// apiError mirrors the provider's error payload; the fields vary by
// endpoint so all known spellings are collected.
type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e *apiError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// PasswordGrant exchanges an email/password pair for a session via
// POST /auth/v1/token?grant_type=password.  This is both the primary
// sign-in transport and, called directly, the low-level fallback exchange
// used when the primary path stalls.
func (c *Client) PasswordGrant(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	return c.tokenGrant(ctx, "password", body)
}

// RefreshGrant rotates a session via POST /auth/v1/token?grant_type=refresh_token.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	return c.tokenGrant(ctx, "refresh_token", body)
}

// Logout revokes the session behind the given access token.  Revocation is
// best-effort: the server-side session is dropped regardless of the outcome.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("identity: logout failed with status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) tokenGrant(ctx context.Context, grantType string, body map[string]string) (*Session, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/auth/v1/token?grant_type=%s", c.baseURL, grantType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		_ = json.Unmarshal(raw, &apiErr)
		msg := apiErr.text()
		if msg == "" {
			msg = fmt.Sprintf("token endpoint returned status %d", resp.StatusCode)
		}
		if resp.StatusCode == http.StatusBadRequest ||
			resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: %s", ErrGrantRejected, msg)
		}
		return nil, fmt.Errorf("identity: %s", msg)
	}

	var tok tokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("identity: malformed token response: %w", err)
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		return nil, fmt.Errorf("identity: token response missing token pair")
	}

	sess := &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		User:         tok.User,
	}
	if tok.ExpiresIn > 0 {
		sess.ExpiresAt = time.Now().UTC().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	if sess.User == nil {
		// Some deployments omit the user object; fall back to the claims.
		parsed, err := sessionFromTokens(tok.AccessToken, tok.RefreshToken)
		if err != nil {
			return nil, err
		}
		sess.User = parsed.User
		if sess.ExpiresAt.IsZero() {
			sess.ExpiresAt = parsed.ExpiresAt
		}
	}
	return sess, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
}
