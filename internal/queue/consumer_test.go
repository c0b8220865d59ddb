package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingApplier struct {
	mu    sync.Mutex
	calls map[string]uint64
	err   error
}

func (a *recordingApplier) IncrementViews(_ context.Context, id string, n uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	if a.calls == nil {
		a.calls = map[string]uint64{}
	}
	a.calls[id] += n
	return nil
}

// chdir mirrors t.Chdir (Go 1.24+), which is unavailable on the Go 1.21
// toolchain used to build this module.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func marshalEvent(t *testing.T, ev EngagementEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestHandleMessageView(t *testing.T) {
	chdir(t, t.TempDir())
	applier := &recordingApplier{}

	ev := EngagementEvent{
		ArticleID:  "a1",
		Kind:       KindView,
		Lang:       "pt",
		OccurredAt: time.Now().UTC(),
	}
	require.NoError(t, handleMessage(marshalEvent(t, ev), applier))
	assert.Equal(t, uint64(1), applier.calls["a1"])

	raw, err := os.ReadFile(filepath.Join("logs", "engagement.log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "kind=view")
	assert.Contains(t, string(raw), "article_id=a1")
}

func TestHandleMessageVoteOnlyLogs(t *testing.T) {
	chdir(t, t.TempDir())
	applier := &recordingApplier{}

	ev := EngagementEvent{ArticleID: "a1", Kind: KindVote, Lang: "en", OccurredAt: time.Now().UTC()}
	require.NoError(t, handleMessage(marshalEvent(t, ev), applier))

	// The vote counter is maintained transactionally in the request path;
	// the consumer only records the event.
	assert.Empty(t, applier.calls)

	raw, err := os.ReadFile(filepath.Join("logs", "engagement.log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "kind=vote")
}

func TestHandleMessageRejectsBadPayloads(t *testing.T) {
	chdir(t, t.TempDir())
	applier := &recordingApplier{}

	assert.Error(t, handleMessage([]byte("{not json"), applier))
	assert.Error(t, handleMessage(marshalEvent(t, EngagementEvent{Kind: KindView}), applier),
		"missing article id must be rejected")
	assert.Empty(t, applier.calls)
}

func TestHandleMessagePropagatesApplyError(t *testing.T) {
	chdir(t, t.TempDir())
	applier := &recordingApplier{err: errors.New("db down")}

	ev := EngagementEvent{ArticleID: "a1", Kind: KindView, OccurredAt: time.Now().UTC()}
	err := handleMessage(marshalEvent(t, ev), applier)
	require.Error(t, err, "a failed counter update must nack the delivery")
	assert.Contains(t, err.Error(), "db down")
}
