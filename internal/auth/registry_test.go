package auth

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryPutGetRemove(t *testing.T) {
	reg := NewRegistry(time.Hour)
	r := NewResolver(newFakeTransport(), &fakeRoles{}, newMemCache())

	var cancelled atomic.Bool
	id, err := reg.Put(r, func() { cancelled.Store(true) })
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, ok := reg.Get(id)
	require.True(t, ok)
	assert.Same(t, r, got)

	reg.Remove(id)
	assert.True(t, cancelled.Load(), "removal must stop the event loop")

	_, ok = reg.Get(id)
	assert.False(t, ok)
}

func TestRegistryIdsAreUnique(t *testing.T) {
	reg := NewRegistry(time.Hour)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := reg.Put(NewResolver(newFakeTransport(), &fakeRoles{}, newMemCache()), func() {})
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate session id")
		seen[id] = true
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := NewRegistry(time.Hour)
	_, ok := reg.Get("nope")
	assert.False(t, ok)
	// Removing an unknown id is a no-op.
	reg.Remove("nope")
}
