package auth

import (
	"context"
	"sync"
	"time"

	"github.com/Jotasiete7/wurm-analytics-journal/internal/identity"
)

// Transport is the slice of the identity provider surface the resolver
// consumes.  identity.Transport satisfies it; tests substitute fakes.
type Transport interface {
	CurrentSession() *identity.Session
	SignInWithPassword(ctx context.Context, email, password string) error
	SetSession(ctx context.Context, accessToken, refreshToken string) error
	SignOut(ctx context.Context) error
	Events() <-chan identity.Event
}

// RoleStore resolves a user id to its raw role value.  Backed by the
// profiles table in production.
type RoleStore interface {
	RoleByUserID(ctx context.Context, userID string) (string, error)
}

// State is the resolved auth state exposed to consumers.  Role is empty
// while unresolved and after sign-out; Loading is true until the first
// resolution (or absence of a session) settles.
type State struct {
	Session *identity.Session
	User    *identity.User
	Role    Role
	Loading bool
}

// defaultResolveTimeout bounds a single role-store lookup.
const defaultResolveTimeout = 2 * time.Second

// Resolver orchestrates session initialization and role resolution for one
// browsing context.  It is the sole writer of its state container and of
// the role cache entries for its user; handlers and middleware only read
// snapshots.  Session-change events are processed strictly in arrival
// order, one at a time, so a later event's resolution can never be
// overtaken by an earlier one.
type Resolver struct {
	transport Transport
	roles     RoleStore
	cache     RoleCache

	resolveTimeout time.Duration

	mu    sync.Mutex
	state State

	readyOnce sync.Once
	ready     chan struct{}
}

// Option tweaks resolver construction.
type Option func(*Resolver)

// WithResolveTimeout overrides the role lookup race budget.
func WithResolveTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.resolveTimeout = d
		}
	}
}

// NewResolver builds a resolver in the Loading state.  Call Initialize to
// settle existing-session state and Run to consume session-change events.
func NewResolver(t Transport, roles RoleStore, cache RoleCache, opts ...Option) *Resolver {
	r := &Resolver{
		transport:      t,
		roles:          roles,
		cache:          cache,
		resolveTimeout: defaultResolveTimeout,
		state:          State{Loading: true},
		ready:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns a snapshot of the current auth state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Initialize settles state from any session the transport already holds.
// If a session exists the role cache pre-seeds Role (avoiding a "reader"
// flash) before the authoritative resolution runs.  Loading flips to false
// on completion regardless of outcome.
func (r *Resolver) Initialize(ctx context.Context) {
	sess := r.transport.CurrentSession()
	r.mu.Lock()
	r.state.Session = sess
	if sess != nil {
		r.state.User = sess.User
	} else {
		r.state.User = nil
	}
	r.mu.Unlock()

	if sess != nil && sess.User != nil {
		if cached, ok := r.cache.Get(ctx, sess.User.ID); ok {
			r.mu.Lock()
			r.state.Role = cached
			r.mu.Unlock()
		}
		role := r.resolveRole(ctx, sess.User.ID)
		r.setRole(ctx, sess.User.ID, role)
	} else {
		r.setRole(ctx, "", "")
	}
	r.settle()
}

// Run consumes the transport's session-change events until the context is
// cancelled or the stream closes.  Events are handled serially in arrival
// order.
func (r *Resolver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.transport.Events():
			if !ok {
				return
			}
			r.handleEvent(ctx, ev)
		}
	}
}

// WaitReady blocks until the first Loading=false transition, or until the
// context is done.  It reports whether the resolver settled in time.
func (r *Resolver) WaitReady(ctx context.Context) bool {
	select {
	case <-r.ready:
		return true
	case <-ctx.Done():
		return false
	}
}

// SignIn delegates to the transport's password sign-in.  State updates are
// driven by the resulting signed_in event; the return value only carries
// the failure, mirroring the provider's error message.
func (r *Resolver) SignIn(ctx context.Context, email, password string) error {
	return r.transport.SignInWithPassword(ctx, email, password)
}

// SignInWithToken adopts an externally obtained access/refresh token pair
// as the active session.  Used by the login fallback after its direct
// token exchange.
func (r *Resolver) SignInWithToken(ctx context.Context, accessToken, refreshToken string) error {
	return r.transport.SetSession(ctx, accessToken, refreshToken)
}

// SignOut delegates to the transport and clears the role eagerly for
// responsiveness; session and user clearing is driven by the signed_out
// event.
func (r *Resolver) SignOut(ctx context.Context) {
	r.mu.Lock()
	userID := ""
	if r.state.User != nil {
		userID = r.state.User.ID
	}
	r.mu.Unlock()

	_ = r.transport.SignOut(ctx)
	r.setRole(ctx, userID, "")
}

// handleEvent applies one session-change notification.
func (r *Resolver) handleEvent(ctx context.Context, ev identity.Event) {
	sess := ev.Session

	r.mu.Lock()
	prevUser := r.state.User
	r.state.Session = sess
	if sess != nil {
		r.state.User = sess.User
	} else {
		r.state.User = nil
	}
	currentRole := r.state.Role
	r.mu.Unlock()

	switch {
	case sess != nil && sess.User != nil:
		// A routine token rotation with a role already in hand does not
		// re-query the store; a momentarily slow store must not interrupt
		// an established session.
		if ev.Kind == identity.EventTokenRefreshed && currentRole != "" {
			break
		}
		role := r.resolveRole(ctx, sess.User.ID)
		r.setRole(ctx, sess.User.ID, role)
	default:
		userID := ""
		if prevUser != nil {
			userID = prevUser.ID
		}
		r.setRole(ctx, userID, "")
	}
	r.settle()
}

// resolveRole queries the role store for userID, racing the lookup against
// the resolve timeout.  The losing query is ignored, not cancelled: a
// short-lived dangling request is the accepted price of an always-bounded
// answer.  The function never fails; on error, absent row or timeout it
// falls back to the caller's current role when that role is privileged
// (the downgrade-prevention invariant) and to reader otherwise.  The
// current role is read from the state container at decision time, never
// from a value captured earlier, because suspension points may interleave
// with other session events.
func (r *Resolver) resolveRole(ctx context.Context, userID string) Role {
	type outcome struct {
		raw string
		err error
	}
	// Buffered so the late loser can complete and be collected.
	ch := make(chan outcome, 1)
	go func() {
		// Deliberately not ctx-scoped: the race discards the slow side
		// rather than cancelling it.
		raw, err := r.roles.RoleByUserID(context.Background(), userID)
		ch <- outcome{raw: raw, err: err}
	}()

	timer := time.NewTimer(r.resolveTimeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out.err == nil {
			if role, ok := ParseRole(out.raw); ok {
				return role
			}
		}
	case <-timer.C:
	}

	r.mu.Lock()
	current := r.state.Role
	r.mu.Unlock()
	if current.Privileged() {
		return current
	}
	return RoleReader
}

// setRole is the single write path for Role so the durable cache stays in
// lockstep with every assignment: write on every non-empty change, delete
// on clear.
func (r *Resolver) setRole(ctx context.Context, userID string, role Role) {
	r.mu.Lock()
	r.state.Role = role
	r.mu.Unlock()

	if userID == "" {
		return
	}
	if role == "" {
		r.cache.Delete(ctx, userID)
		return
	}
	r.cache.Set(ctx, userID, role)
}

// settle marks the first Loading=false transition.
func (r *Resolver) settle() {
	r.mu.Lock()
	r.state.Loading = false
	r.mu.Unlock()
	r.readyOnce.Do(func() { close(r.ready) })
}
