package identity

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// EventKind names a session-change notification.
type EventKind string

const (
	EventSignedIn       EventKind = "signed_in"
	EventSignedOut      EventKind = "signed_out"
	EventTokenRefreshed EventKind = "token_refreshed"
)

// Event is a session-change notification pushed to the transport's consumer.
// Session is nil for signed_out.
type Event struct {
	Kind    EventKind
	Session *Session
}

const (
	// refreshMargin is how long before expiry a rotation is attempted.
	refreshMargin = 30 * time.Second
	// refreshRetry is the backoff after a transient refresh failure.
	refreshRetry = 30 * time.Second
	// minRefreshDelay keeps a nearly expired token from spinning the timer.
	minRefreshDelay = time.Second
)

// Transport owns one browsing context's session: the current token pair, a
// refresh timer that rotates it before expiry, and the ordered stream of
// session-change events the auth resolver consumes.  All session mutation
// for a context goes through its Transport; consumers only ever see
// snapshots and events.
type Transport struct {
	client *Client

	mu      sync.Mutex
	session *Session
	refresh *time.Timer
	closed  bool

	events chan Event
}

// NewTransport wraps the shared provider client with per-session state.
func NewTransport(client *Client) *Transport {
	return &Transport{
		client: client,
		events: make(chan Event, 16),
	}
}

// Events returns the session-change stream.  Events are delivered in the
// order they occur; a single buffered channel preserves that ordering.
func (t *Transport) Events() <-chan Event {
	return t.events
}

// CurrentSession returns the active session, or nil when signed out.
func (t *Transport) CurrentSession() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

// SignInWithPassword performs the primary password sign-in.  On success the
// session is adopted and a signed_in event is emitted; the caller learns the
// outcome from the returned error only.
func (t *Transport) SignInWithPassword(ctx context.Context, email, password string) error {
	sess, err := t.client.PasswordGrant(ctx, email, password)
	if err != nil {
		return err
	}
	t.adopt(sess, EventSignedIn)
	return nil
}

// SetSession adopts an externally obtained token pair as the active session.
// This is the entry point for the login fallback, which performs the raw
// token exchange itself.  An already expired access token is rotated first
// so the adopted session is immediately usable.
func (t *Transport) SetSession(ctx context.Context, accessToken, refreshToken string) error {
	sess, err := sessionFromTokens(accessToken, refreshToken)
	if err != nil {
		return err
	}
	if sess.Expired() {
		sess, err = t.client.RefreshGrant(ctx, refreshToken)
		if err != nil {
			return err
		}
	}
	t.adopt(sess, EventSignedIn)
	return nil
}

// SignOut revokes the session with the provider (best-effort) and emits a
// signed_out event.  The local session is dropped even when revocation fails.
func (t *Transport) SignOut(ctx context.Context) error {
	t.mu.Lock()
	sess := t.session
	t.session = nil
	t.stopRefreshLocked()
	t.mu.Unlock()

	var err error
	if sess != nil {
		err = t.client.Logout(ctx, sess.AccessToken)
	}
	t.emit(Event{Kind: EventSignedOut})
	return err
}

// Close stops the refresh timer and closes the event stream.  The session
// itself is not revoked; Close is for tearing down the server-side context.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.stopRefreshLocked()
	close(t.events)
}

// adopt installs a session, schedules its rotation and emits an event.
func (t *Transport) adopt(sess *Session, kind EventKind) {
	t.mu.Lock()
	t.session = sess
	t.scheduleRefreshLocked(sess)
	t.mu.Unlock()
	t.emit(Event{Kind: kind, Session: sess})
}

func (t *Transport) scheduleRefreshLocked(sess *Session) {
	t.stopRefreshLocked()
	if sess == nil || sess.ExpiresAt.IsZero() {
		return
	}
	d := time.Until(sess.ExpiresAt) - refreshMargin
	if d < minRefreshDelay {
		d = minRefreshDelay
	}
	t.refresh = time.AfterFunc(d, t.refreshNow)
}

func (t *Transport) stopRefreshLocked() {
	if t.refresh != nil {
		t.refresh.Stop()
		t.refresh = nil
	}
}

// refreshNow rotates the token pair.  A rejected grant means the session is
// gone on the provider side, so the context signs out; any other failure is
// retried, leaving the current (still valid) tokens in place.
func (t *Transport) refreshNow() {
	t.mu.Lock()
	if t.closed || t.session == nil {
		t.mu.Unlock()
		return
	}
	refreshToken := t.session.RefreshToken
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sess, err := t.client.RefreshGrant(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrGrantRejected) {
			log.Printf("identity: refresh rejected, signing out: %v", err)
			_ = t.SignOut(context.Background())
			return
		}
		log.Printf("identity: refresh failed, retrying in %s: %v", refreshRetry, err)
		t.mu.Lock()
		if !t.closed && t.session != nil {
			t.stopRefreshLocked()
			t.refresh = time.AfterFunc(refreshRetry, t.refreshNow)
		}
		t.mu.Unlock()
		return
	}
	t.adopt(sess, EventTokenRefreshed)
}

// emit forwards an event without ever blocking session operations.  The
// resolver drains the channel promptly; if it has fallen that far behind the
// event is dropped and logged, and the next resolution re-converges state.
func (t *Transport) emit(ev Event) {
	// The send happens under the mutex so Close cannot close the channel
	// between the closed check and the send.
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.events <- ev:
	default:
		log.Printf("identity: dropping %s event, consumer not keeping up", ev.Kind)
	}
}
