package pushchannel

import (
	"encoding/json"
	"errors"
	"sync"
)

// ErrChannelClosed is returned when sending on a closed channel.
var ErrChannelClosed = errors.New("push channel closed")

// Envelope is the JSON frame exchanged with the room server.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// handlerRegistry keeps the subscribers of each event.
type handlerRegistry struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]func(json.RawMessage)
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{handlers: make(map[string]map[uint64]func(json.RawMessage))}
}

func (r *handlerRegistry) add(event string, handler func(json.RawMessage)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	if r.handlers[event] == nil {
		r.handlers[event] = make(map[uint64]func(json.RawMessage))
	}
	r.handlers[event][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.handlers[event], id)
			if len(r.handlers[event]) == 0 {
				delete(r.handlers, event)
			}
		})
	}
}

// deliver calls every handler of event and reports how many ran.
func (r *handlerRegistry) deliver(event string, data json.RawMessage) int {
	r.mu.RLock()
	targets := make([]func(json.RawMessage), 0, len(r.handlers[event]))
	for _, handler := range r.handlers[event] {
		targets = append(targets, handler)
	}
	r.mu.RUnlock()

	for _, handler := range targets {
		handler(data)
	}
	return len(targets)
}
