package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManager_TrackerRefreshesIdleClock(t *testing.T) {
	m := NewManager(nil, nil, nil, nil, time.Minute)
	idle := newTracker(Client{ID: "a"}, nil, nil)
	idle.lastSeen = time.Now().Add(-time.Hour)
	m.trackers["a"] = idle

	got := m.Tracker("a")

	assert.Same(t, idle, got)
	assert.Zero(t, m.evictIdle(time.Now()))
	assert.Equal(t, 1, m.Len())
}

func TestManager_EvictIdleRemovesStaleTrackers(t *testing.T) {
	m := NewManager(nil, nil, nil, nil, time.Minute)
	stale := newTracker(Client{ID: "a"}, nil, nil)
	stale.lastSeen = time.Now().Add(-time.Hour)
	m.trackers["a"] = stale
	m.trackers["b"] = newTracker(Client{ID: "b"}, nil, nil)

	assert.Equal(t, 1, m.evictIdle(time.Now()))
	assert.Equal(t, 1, m.Len())
	assert.Error(t, stale.ctx.Err())
}
