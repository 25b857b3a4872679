package agenda

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/mcdev12/streamagenda/go/internal/models"
	"github.com/stretchr/testify/require"
)

type sentEvent struct {
	Event   string
	Payload any
}

// fakeChannel is an in-memory push channel. Emit delivers to subscribers synchronously.
type fakeChannel struct {
	mu       sync.Mutex
	sent     []sentEvent
	handlers map[string]map[int]func(json.RawMessage)
	nextID   int
	sendErr  error
	onSend   func(event string, payload any)
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[string]map[int]func(json.RawMessage))}
}

func (c *fakeChannel) Send(_ context.Context, event string, payload any) error {
	c.mu.Lock()
	c.sent = append(c.sent, sentEvent{Event: event, Payload: payload})
	err, hook := c.sendErr, c.onSend
	c.mu.Unlock()

	if hook != nil {
		hook(event, payload)
	}
	return err
}

func (c *fakeChannel) Subscribe(event string, handler func(json.RawMessage)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]func(json.RawMessage))
	}
	id := c.nextID
	c.nextID++
	c.handlers[event][id] = handler

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[event], id)
	}
}

func (c *fakeChannel) emit(t *testing.T, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	c.mu.Lock()
	handlers := make([]func(json.RawMessage), 0, len(c.handlers[event]))
	for _, h := range c.handlers[event] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(data)
	}
}

func (c *fakeChannel) subscribers(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers[event])
}

func (c *fakeChannel) sentOf(event string) []any {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []any
	for _, s := range c.sent {
		if s.Event == event {
			out = append(out, s.Payload)
		}
	}
	return out
}

// recorder collects dispatched item ids.
type recorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *recorder) dispatch(_ context.Context, item models.AgendaItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, item.ID)
	return nil
}

func (r *recorder) dispatched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func (r *recorder) count(id string) int {
	n := 0
	for _, got := range r.dispatched() {
		if got == id {
			n++
		}
	}
	return n
}

func item(id string, offset int) models.AgendaItem {
	return models.AgendaItem{
		ID:        id,
		TimeStamp: offset,
		Action:    models.ActionKindPoll,
		Details:   models.AgendaDetails{Item: "Question " + id, Wallets: []string{"yes", "no"}},
	}
}

func message(t *testing.T, event string, payload any) Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return Message{Event: event, Data: data}
}

func newTestSession(channel PushChannel, rec *recorder, items ...models.AgendaItem) *Session {
	return NewSession(Config{
		RoomName: "room-1",
		Identity: "viewer-1",
		Token:    "token",
	}, channel, NewAgenda(items), rec.dispatch)
}

func syncSession(t *testing.T, s *Session, currentTime, joinTime int, executed ...string) {
	t.Helper()
	require.NoError(t, s.OnMessage(context.Background(), message(t, EventInitialSync, InitialSyncPayload{
		CurrentTime:     currentTime,
		ExecutedActions: executed,
		JoinTime:        joinTime,
	})))
}
