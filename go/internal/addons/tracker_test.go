package addons

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/mcdev12/streamagenda/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChannel struct {
	mu       sync.Mutex
	handlers map[string]func(json.RawMessage)
}

func (c *stubChannel) Send(context.Context, string, any) error { return nil }

func (c *stubChannel) Subscribe(event string, handler func(json.RawMessage)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers == nil {
		c.handlers = make(map[string]func(json.RawMessage))
	}
	c.handlers[event] = handler
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers, event)
	}
}

func (c *stubChannel) emit(event, data string) {
	c.mu.Lock()
	handler := c.handlers[event]
	c.mu.Unlock()
	if handler != nil {
		handler(json.RawMessage(data))
	}
}

func TestTrackerDefaults(t *testing.T) {
	tr := NewTracker()
	snapshot := tr.Snapshot()

	require.Len(t, snapshot, 3)
	for _, kind := range []models.ActionKind{models.ActionKindCustom, models.ActionKindQA, models.ActionKindPoll} {
		state, ok := tr.Get(kind)
		require.True(t, ok, kind)
		assert.False(t, state.IsActive)
	}
	assert.Empty(t, tr.Active())
}

func TestTrackerFollowsPushChannel(t *testing.T) {
	ch := &stubChannel{}
	tr := NewTracker()
	detach := tr.Attach(ch)

	ch.emit(EventAddonState, `{"Poll":{"type":"Poll","isActive":true,"data":{"title":"Best goal?","details":{"item":"Best goal?","wallets":["A","B"]}}}}`)
	poll, _ := tr.Get(models.ActionKindPoll)
	require.True(t, poll.IsActive)
	require.NotNil(t, poll.Data)
	assert.Equal(t, []string{"A", "B"}, poll.Data.Details.Wallets)

	custom, ok := tr.Get(models.ActionKindCustom)
	assert.True(t, ok, "defaults survive a partial snapshot")
	assert.False(t, custom.IsActive)

	ch.emit(EventAddonStateUpdate, `{"type":"Q&A","isActive":true}`)
	assert.Len(t, tr.Active(), 2)

	ch.emit(EventAddonStateUpdate, `{"isActive":true}`)
	ch.emit(EventAddonState, `[]`)
	assert.Len(t, tr.Active(), 2)

	detach()
	ch.emit(EventAddonStateUpdate, `{"type":"Poll","isActive":false}`)
	poll, _ = tr.Get(models.ActionKindPoll)
	assert.True(t, poll.IsActive)
}

func TestTrackerSnapshotIsACopy(t *testing.T) {
	tr := NewTracker()
	snapshot := tr.Snapshot()
	snapshot["Poll"] = models.AddonState{Type: models.ActionKindPoll, IsActive: true}

	poll, _ := tr.Get(models.ActionKindPoll)
	assert.False(t, poll.IsActive)
}
