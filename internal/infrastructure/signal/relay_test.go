package signal

import (
	"sync/atomic"
	"testing"
	"time"

	"cinesync/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestRelay_ResolveServesAllRequesters(t *testing.T) {
	relay := NewHostSyncRelay(time.Second, zaptest.NewLogger(t).Sugar())

	relay.Register("room-1", "viewer-1", func() { t.Error("timeout should not fire") })
	relay.Register("room-1", "viewer-2", func() { t.Error("timeout should not fire") })
	relay.Register("room-2", "viewer-3", func() {})

	requesters := relay.Resolve("room-1")
	assert.ElementsMatch(t,
		[]domain.UserID{"viewer-1", "viewer-2"}, requesters)

	// room-2's request is untouched.
	assert.Len(t, relay.Resolve("room-2"), 1)

	// Nothing left to resolve.
	assert.Empty(t, relay.Resolve("room-1"))
}

func TestRelay_TimeoutFallback(t *testing.T) {
	relay := NewHostSyncRelay(20*time.Millisecond, zaptest.NewLogger(t).Sugar())

	var fired atomic.Int32
	relay.Register("room-1", "viewer-1", func() { fired.Add(1) })

	assert.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, 5*time.Millisecond)

	// The timed-out request is gone.
	assert.Empty(t, relay.Resolve("room-1"))
}

func TestRelay_ReregisterResetsWithoutDoubleFire(t *testing.T) {
	relay := NewHostSyncRelay(30*time.Millisecond, zaptest.NewLogger(t).Sugar())

	var fired atomic.Int32
	relay.Register("room-1", "viewer-1", func() { fired.Add(1) })
	relay.Register("room-1", "viewer-1", func() { fired.Add(1) })

	assert.Eventually(t, func() bool { return fired.Load() >= 1 },
		time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestRelay_CancelPreventsTimeout(t *testing.T) {
	relay := NewHostSyncRelay(20*time.Millisecond, zaptest.NewLogger(t).Sugar())

	relay.Register("room-1", "viewer-1", func() { t.Error("cancelled request fired") })
	relay.Cancel("room-1", "viewer-1")

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, relay.Resolve("room-1"))
}

func TestRelay_CancelRoom(t *testing.T) {
	relay := NewHostSyncRelay(time.Second, zaptest.NewLogger(t).Sugar())

	relay.Register("room-1", "viewer-1", func() {})
	relay.Register("room-1", "viewer-2", func() {})
	relay.CancelRoom("room-1")

	assert.Empty(t, relay.Resolve("room-1"))
}
