// Package identity talks to the external identity provider that issues and
// validates sessions for the admin area.  The provider speaks a GoTrue-style
// JSON-over-HTTP protocol: a token endpoint with password and refresh_token
// grants, a logout endpoint, and JWT access tokens carrying the user's
// identity claims.  This service never stores or verifies passwords itself;
// it forwards credentials and keeps the resulting token pair server-side.
package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the identity record attached to a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the opaque token bundle issued by the provider together with
// the user it belongs to.  It is treated as read-only outside this package;
// the transport replaces the whole value on every rotation.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         *User
}

// Expired reports whether the access token is past (or within skew of) its
// expiry.  A small skew avoids presenting a token that dies in flight.
func (s *Session) Expired() bool {
	if s == nil {
		return true
	}
	const skew = 10 * time.Second
	return !s.ExpiresAt.IsZero() && time.Now().UTC().After(s.ExpiresAt.Add(-skew))
}

var errBadToken = errors.New("identity: malformed access token")

// sessionFromTokens builds a Session from an externally obtained token pair
// by reading the identity claims out of the access token.  The signature is
// deliberately not verified here: the provider signed the token and remains
// the authority; a forged token fails at the first provider or role-store
// round trip.  Claims are used only to attach the user identity and to
// schedule the refresh timer.
func sessionFromTokens(accessToken, refreshToken string) (*Session, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, errBadToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errBadToken
	}
	email, _ := claims["email"].(string)

	sess := &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         &User{ID: sub, Email: email},
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		sess.ExpiresAt = exp.Time.UTC()
	}
	return sess, nil
}
