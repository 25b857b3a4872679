package agenda

import (
	"sync"

	"github.com/mcdev12/streamagenda/go/internal/models"
)

// SessionClock tracks elapsed seconds for one participant's view of a session.
// Local ticks and authoritative overwrites both write the same value; the last write wins.
type SessionClock struct {
	mu         sync.RWMutex
	elapsed    int
	joinOffset int
	joined     bool
}

// Tick advances the clock by one second, wrapping to 0 at the session ceiling.
// It reports whether the clock wrapped.
func (c *SessionClock) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.elapsed++
	if c.elapsed >= models.SessionCeilingSeconds {
		c.elapsed = 0
		return true
	}
	return false
}

// ApplyAuthoritative overwrites the elapsed time with the server's value.
func (c *SessionClock) ApplyAuthoritative(serverElapsed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsed = serverElapsed
}

// Elapsed returns the current elapsed seconds.
func (c *SessionClock) Elapsed() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.elapsed
}

// JoinOffset returns the elapsed time at which the participant joined.
// The second value is false until an initial sync has set it.
func (c *SessionClock) JoinOffset() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.joinOffset, c.joined
}

func (c *SessionClock) setJoinOffset(offset int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joinOffset = offset
	c.joined = true
}
