package follower

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mcdev12/streamagenda/go/internal/addons"
	"github.com/mcdev12/streamagenda/go/internal/agenda"
	"github.com/mcdev12/streamagenda/go/internal/config"
	"github.com/mcdev12/streamagenda/go/internal/models"
	"github.com/mcdev12/streamagenda/go/internal/notify"
	"github.com/mcdev12/streamagenda/go/internal/pushchannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	items []models.AgendaItem
	err   error
}

func (s staticSource) FetchAgenda(context.Context, string) ([]models.AgendaItem, error) {
	return s.items, s.err
}

type memoryChannel struct {
	mu       sync.Mutex
	handlers map[string][]func(json.RawMessage)
	sent     []string
	done     chan struct{}
	closed   bool
	failure  error
}

func newMemoryChannel() *memoryChannel {
	return &memoryChannel{handlers: make(map[string][]func(json.RawMessage)), done: make(chan struct{})}
}

func (c *memoryChannel) Send(_ context.Context, event string, _ any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, event)
	return nil
}

func (c *memoryChannel) Subscribe(event string, handler func(json.RawMessage)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
	idx := len(c.handlers[event]) - 1
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.handlers[event][idx] = nil
	}
}

func (c *memoryChannel) Done() <-chan struct{} { return c.done }

func (c *memoryChannel) Err() error { return c.failure }

func (c *memoryChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *memoryChannel) emit(event, data string) {
	c.mu.Lock()
	handlers := append(([]func(json.RawMessage))(nil), c.handlers[event]...)
	c.mu.Unlock()
	for _, h := range handlers {
		if h != nil {
			h(json.RawMessage(data))
		}
	}
}

func (c *memoryChannel) joined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, event := range c.sent {
		if event == agenda.EventJoinRoom {
			return true
		}
	}
	return false
}

func (c *memoryChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig() config.Config {
	return config.Config{
		Room:      "room-1",
		Identity:  "viewer-1",
		Token:     "token",
		UserType:  models.UserTypeGuest,
		Transport: config.TransportWebSocket,
	}
}

func TestServiceNotifiesDueItems(t *testing.T) {
	ch := newMemoryChannel()
	out := &syncBuffer{}
	source := staticSource{items: []models.AgendaItem{{
		ID:        "poll-1",
		TimeStamp: 20,
		Action:    models.ActionKindPoll,
		Details:   models.AgendaDetails{Item: "Who wins?", Wallets: []string{"Home", "Away"}},
	}}}

	svc, err := NewService(context.Background(), testConfig(), source, ch, out)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Start(ctx) }()

	require.Eventually(t, ch.joined, time.Second, 5*time.Millisecond)
	ch.emit(addons.EventAddonStateUpdate, `{"type":"Poll","isActive":true}`)
	ch.emit(agenda.EventInitialSync, `{"currentTime":30,"executedActions":[],"joinTime":0}`)

	require.Eventually(t, func() bool { return out.String() != "" }, time.Second, 5*time.Millisecond)
	var n notify.Notification
	require.NoError(t, json.Unmarshal([]byte(out.String()), &n))
	assert.Equal(t, "poll-1", n.ActionID)
	assert.Equal(t, notify.VariantPoll, n.Variant)
	assert.Equal(t, []string{"Home", "Away"}, n.Options)

	poll, _ := svc.Addons().Get(models.ActionKindPoll)
	assert.True(t, poll.IsActive)
	assert.Equal(t, agenda.ItemDispatched, svc.Session().ItemState("poll-1"))

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
	assert.True(t, ch.isClosed())
}

func TestServiceStopsWhenChannelDrops(t *testing.T) {
	ch := newMemoryChannel()
	svc, err := NewService(context.Background(), testConfig(), staticSource{}, ch, nil)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Start(context.Background()) }()

	require.Eventually(t, ch.joined, time.Second, 5*time.Millisecond)
	close(ch.done)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, pushchannel.ErrChannelClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestServiceReportsChannelFailure(t *testing.T) {
	ch := newMemoryChannel()
	ch.failure = errors.New("subscribe livestream.room-1.timeSync: permissions violation")
	svc, err := NewService(context.Background(), testConfig(), staticSource{}, ch, nil)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Start(context.Background()) }()

	require.Eventually(t, ch.joined, time.Second, 5*time.Millisecond)
	close(ch.done)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ch.failure)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestNewServiceFailsWithoutAgenda(t *testing.T) {
	fetchErr := errors.New("backend down")
	_, err := NewService(context.Background(), testConfig(), staticSource{err: fetchErr}, newMemoryChannel(), nil)
	assert.ErrorIs(t, err, fetchErr)
}
