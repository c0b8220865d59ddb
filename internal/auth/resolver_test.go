package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jotasiete7/wurm-analytics-journal/internal/identity"
)

// fakeTransport emits scripted session events.
type fakeTransport struct {
	mu          sync.Mutex
	session     *identity.Session
	events      chan identity.Event
	signInErr   error
	signInDelay time.Duration
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan identity.Event, 16)}
}

func (t *fakeTransport) CurrentSession() *identity.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

func (t *fakeTransport) SignInWithPassword(ctx context.Context, email, _ string) error {
	if t.signInDelay > 0 {
		select {
		case <-time.After(t.signInDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if t.signInErr != nil {
		return t.signInErr
	}
	t.push(identity.EventSignedIn, sessionFor("u1", email))
	return nil
}

func (t *fakeTransport) SetSession(ctx context.Context, accessToken, _ string) error {
	// The token doubles as the user id so tests can steer identity.
	t.push(identity.EventSignedIn, sessionFor(accessToken, accessToken+"@example.com"))
	return nil
}

func (t *fakeTransport) SignOut(ctx context.Context) error {
	t.push(identity.EventSignedOut, nil)
	return nil
}

func (t *fakeTransport) Events() <-chan identity.Event { return t.events }

func (t *fakeTransport) push(kind identity.EventKind, sess *identity.Session) {
	t.mu.Lock()
	t.session = sess
	t.mu.Unlock()
	t.events <- identity.Event{Kind: kind, Session: sess}
}

func sessionFor(userID, email string) *identity.Session {
	return &identity.Session{
		AccessToken:  "at-" + userID,
		RefreshToken: "rt-" + userID,
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         &identity.User{ID: userID, Email: email},
	}
}

// fakeRoles is a scriptable role store.
type fakeRoles struct {
	mu    sync.Mutex
	role  string
	err   error
	delay time.Duration
	calls int
}

func (f *fakeRoles) RoleByUserID(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	f.calls++
	role, err, delay := f.role, f.err, f.delay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return role, err
}

func (f *fakeRoles) set(role string, err error, delay time.Duration) {
	f.mu.Lock()
	f.role, f.err, f.delay = role, err, delay
	f.mu.Unlock()
}

func (f *fakeRoles) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memCache records role cache traffic.
type memCache struct {
	mu      sync.Mutex
	m       map[string]Role
	deletes int
}

func newMemCache() *memCache { return &memCache{m: map[string]Role{}} }

func (c *memCache) Get(_ context.Context, userID string) (Role, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.m[userID]
	return r, ok
}

func (c *memCache) Set(_ context.Context, userID string, role Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[userID] = role
}

func (c *memCache) Delete(_ context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, userID)
	c.deletes++
}

func (c *memCache) deleteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletes
}

func startResolver(t *testing.T, tr Transport, roles RoleStore, cache RoleCache, opts ...Option) *Resolver {
	t.Helper()
	r := NewResolver(tr, roles, cache, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)
	return r
}

func waitForRole(t *testing.T, r *Resolver, want Role) {
	t.Helper()
	require.Eventually(t, func() bool {
		return r.State().Role == want
	}, 2*time.Second, 5*time.Millisecond, "role never became %q", want)
}

func TestSignInResolvesRole(t *testing.T) {
	tr := newFakeTransport()
	roles := &fakeRoles{role: "editor"}
	cache := newMemCache()
	r := startResolver(t, tr, roles, cache)

	require.NoError(t, r.SignIn(context.Background(), "ed@example.com", "pw"))
	waitForRole(t, r, RoleEditor)

	st := r.State()
	require.NotNil(t, st.User)
	assert.Equal(t, "u1", st.User.ID)
	assert.False(t, st.Loading)

	cached, ok := cache.Get(context.Background(), "u1")
	require.True(t, ok, "resolved role must land in the cache")
	assert.Equal(t, RoleEditor, cached)
}

func TestUnknownRoleValueFallsBackToReader(t *testing.T) {
	tr := newFakeTransport()
	roles := &fakeRoles{role: "superuser"}
	r := startResolver(t, tr, roles, newMemCache())

	require.NoError(t, r.SignIn(context.Background(), "x@example.com", "pw"))
	waitForRole(t, r, RoleReader)
}

func TestStoreErrorWithoutPriorRoleYieldsReader(t *testing.T) {
	tr := newFakeTransport()
	roles := &fakeRoles{err: errors.New("connection refused")}
	r := startResolver(t, tr, roles, newMemCache())

	require.NoError(t, r.SignIn(context.Background(), "x@example.com", "pw"))
	waitForRole(t, r, RoleReader)
}

func TestSlowStoreNeverDowngradesPrivilegedRole(t *testing.T) {
	tr := newFakeTransport()
	roles := &fakeRoles{role: "admin"}
	cache := newMemCache()
	r := startResolver(t, tr, roles, cache, WithResolveTimeout(40*time.Millisecond))

	require.NoError(t, r.SignIn(context.Background(), "boss@example.com", "pw"))
	waitForRole(t, r, RoleAdmin)

	// The store goes dark; a fresh signed_in for the same user must keep
	// the admin role rather than flashing back to reader.
	roles.set("admin", nil, 500*time.Millisecond)
	tr.push(identity.EventSignedIn, sessionFor("u1", "boss@example.com"))

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, RoleAdmin, r.State().Role)

	cached, ok := cache.Get(context.Background(), "u1")
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, cached, "cache must track the kept role")
}

func TestSlowStoreTimeoutYieldsReaderForUnprivileged(t *testing.T) {
	tr := newFakeTransport()
	roles := &fakeRoles{role: "editor", delay: 500 * time.Millisecond}
	r := startResolver(t, tr, roles, newMemCache(), WithResolveTimeout(40*time.Millisecond))

	require.NoError(t, r.SignIn(context.Background(), "x@example.com", "pw"))
	waitForRole(t, r, RoleReader)
}

func TestInitializeWithoutSessionSettles(t *testing.T) {
	tr := newFakeTransport()
	r := NewResolver(tr, &fakeRoles{}, newMemCache())

	assert.True(t, r.State().Loading)
	r.Initialize(context.Background())

	st := r.State()
	assert.False(t, st.Loading)
	assert.Nil(t, st.Session)
	assert.Equal(t, Role(""), st.Role)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.True(t, r.WaitReady(ctx))
}

func TestInitializePreseedsFromCacheBeforeSlowResolve(t *testing.T) {
	tr := newFakeTransport()
	tr.session = sessionFor("u1", "ed@example.com")
	roles := &fakeRoles{role: "editor", delay: 300 * time.Millisecond}
	cache := newMemCache()
	cache.Set(context.Background(), "u1", RoleEditor)

	r := NewResolver(tr, roles, cache, WithResolveTimeout(time.Second))
	done := make(chan struct{})
	go func() {
		r.Initialize(context.Background())
		close(done)
	}()

	// While the authoritative lookup is still in flight the cached role is
	// already visible.
	require.Eventually(t, func() bool {
		return r.State().Role == RoleEditor
	}, 200*time.Millisecond, 5*time.Millisecond)
	assert.True(t, r.State().Loading, "still loading until the resolve settles")

	<-done
	st := r.State()
	assert.False(t, st.Loading)
	assert.Equal(t, RoleEditor, st.Role)
}

func TestTokenRefreshSkipsRoleLookup(t *testing.T) {
	tr := newFakeTransport()
	roles := &fakeRoles{role: "editor"}
	r := startResolver(t, tr, roles, newMemCache())

	require.NoError(t, r.SignIn(context.Background(), "ed@example.com", "pw"))
	waitForRole(t, r, RoleEditor)
	callsAfterSignIn := roles.callCount()

	tr.push(identity.EventTokenRefreshed, sessionFor("u1", "ed@example.com"))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, callsAfterSignIn, roles.callCount(),
		"routine rotation must not hit the role store")
	assert.Equal(t, RoleEditor, r.State().Role)
}

func TestTokenRefreshWithoutRoleStillResolves(t *testing.T) {
	tr := newFakeTransport()
	roles := &fakeRoles{role: "editor"}
	r := startResolver(t, tr, roles, newMemCache())

	// A refresh arriving before any role was established must resolve.
	tr.push(identity.EventTokenRefreshed, sessionFor("u1", "ed@example.com"))
	waitForRole(t, r, RoleEditor)
}

func TestSignOutClearsRoleAndCache(t *testing.T) {
	tr := newFakeTransport()
	roles := &fakeRoles{role: "admin"}
	cache := newMemCache()
	r := startResolver(t, tr, roles, cache)

	require.NoError(t, r.SignIn(context.Background(), "boss@example.com", "pw"))
	waitForRole(t, r, RoleAdmin)

	r.SignOut(context.Background())

	require.Eventually(t, func() bool {
		st := r.State()
		return st.Session == nil && st.User == nil && st.Role == ""
	}, time.Second, 5*time.Millisecond)

	_, ok := cache.Get(context.Background(), "u1")
	assert.False(t, ok, "cached role must be purged on sign-out")
	assert.GreaterOrEqual(t, cache.deleteCount(), 1)
}

func TestSignInWithTokenAdoptsSession(t *testing.T) {
	tr := newFakeTransport()
	roles := &fakeRoles{role: "editor"}
	r := startResolver(t, tr, roles, newMemCache())

	require.NoError(t, r.SignInWithToken(context.Background(), "u9", "rt"))
	waitForRole(t, r, RoleEditor)
	require.NotNil(t, r.State().User)
	assert.Equal(t, "u9", r.State().User.ID)
}

func TestRapidEventsLastOneWins(t *testing.T) {
	tr := newFakeTransport()
	roles := &fakeRoles{role: "editor"}
	r := startResolver(t, tr, roles, newMemCache())

	// Sign-in immediately followed by sign-out: the final state must be
	// the signed-out one, never a resurrected session.
	tr.push(identity.EventSignedIn, sessionFor("u1", "ed@example.com"))
	tr.push(identity.EventSignedOut, nil)

	require.Eventually(t, func() bool {
		st := r.State()
		return !st.Loading && st.Session == nil && st.Role == ""
	}, time.Second, 5*time.Millisecond)
}

func TestWaitReadyTimesOut(t *testing.T) {
	tr := newFakeTransport()
	r := NewResolver(tr, &fakeRoles{}, newMemCache())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.False(t, r.WaitReady(ctx), "nothing settled, WaitReady must give up with the context")
}
