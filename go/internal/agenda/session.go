package agenda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/streamagenda/go/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoCredential is returned by Run when the participant has no session token or identity.
	ErrNoCredential = errors.New("session credential required")
	// ErrInitialSyncTimeout is returned by Run when no initialSync arrived within Config.SyncTimeout.
	ErrInitialSyncTimeout = errors.New("initial sync not received")
)

const (
	defaultTickInterval = time.Second
	defaultInboxSize    = 64
)

// Config holds the settings of one participant session.
type Config struct {
	RoomName string
	Identity string
	Token    string

	TickInterval time.Duration
	// SyncTimeout bounds the wait for initialSync. Zero waits forever.
	SyncTimeout time.Duration
	InboxSize   int
	Clock       clockwork.Clock
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.InboxSize <= 0 {
		c.InboxSize = defaultInboxSize
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return c
}

// State is a point-in-time view of a session.
type State struct {
	RoomName   string   `json:"room_name"`
	Identity   string   `json:"identity"`
	Elapsed    int      `json:"elapsed_sec"`
	JoinOffset *int     `json:"join_offset_sec,omitempty"`
	Synced     bool     `json:"synced"`
	Expired    bool     `json:"expired"`
	Items      int      `json:"items"`
	Executed   []string `json:"executed_actions"`
}

// Session keeps one participant's agenda in step with the room.
// OnTick and OnMessage are the only entry points that move the clock or fire items.
// Run drives both from a single goroutine; direct callers may also call them concurrently.
type Session struct {
	cfg        Config
	channel    PushChannel
	agenda     *Agenda
	clock      *SessionClock
	executed   *ExecutedSet
	dispatcher *Dispatcher

	mu      sync.RWMutex
	synced  bool
	expired bool
}

// NewSession creates a session for the given agenda. dispatch is invoked at most once per item.
func NewSession(cfg Config, channel PushChannel, agenda *Agenda, dispatch DispatchFunc) *Session {
	s := &Session{
		cfg:      cfg.withDefaults(),
		channel:  channel,
		agenda:   agenda,
		clock:    &SessionClock{},
		executed: NewExecutedSet(),
	}
	s.dispatcher = NewDispatcher(agenda, s.clock, s.executed, dispatch, s.broadcastExecuted)
	return s
}

// Run joins the room and processes ticks and push channel messages until ctx is done.
// On return the ticker is stopped and every channel subscription is detached.
func (s *Session) Run(ctx context.Context) error {
	if s.cfg.Token == "" || s.cfg.Identity == "" {
		return ErrNoCredential
	}

	inbox := make(chan Message, s.cfg.InboxSize)
	done := make(chan struct{})
	unsubscribe := s.subscribe(inbox, done)
	defer unsubscribe()
	defer close(done)

	if err := s.Join(ctx); err != nil {
		return fmt.Errorf("join room: %w", err)
	}

	ticker := s.cfg.Clock.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	var syncTimeout <-chan time.Time
	if s.cfg.SyncTimeout > 0 {
		timer := s.cfg.Clock.NewTimer(s.cfg.SyncTimeout)
		defer timer.Stop()
		syncTimeout = timer.Chan()
	}

	log.Info().
		Str("room", s.cfg.RoomName).
		Str("identity", s.cfg.Identity).
		Int("items", s.agenda.Len()).
		Msg("agenda session started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("room", s.cfg.RoomName).Msg("agenda session stopped")
			return nil

		case <-ticker.Chan():
			if err := s.OnTick(ctx); err != nil {
				log.Error().Err(err).Str("room", s.cfg.RoomName).Msg("agenda dispatch failed")
			}

		case msg := <-inbox:
			if err := s.OnMessage(ctx, msg); err != nil {
				log.Error().Err(err).Str("room", s.cfg.RoomName).Str("event", msg.Event).Msg("agenda dispatch failed")
			}

		case <-syncTimeout:
			syncTimeout = nil
			if !s.Synced() {
				log.Error().
					Str("room", s.cfg.RoomName).
					Dur("timeout", s.cfg.SyncTimeout).
					Msg("no initial sync from server")
				return ErrInitialSyncTimeout
			}
		}
	}
}

// Join announces the participant in the room and requests a snapshot.
func (s *Session) Join(ctx context.Context) error {
	return s.channel.Send(ctx, EventJoinRoom, JoinRoomPayload{
		RoomName: s.cfg.RoomName,
		Identity: s.cfg.Identity,
	})
}

// OnTick advances the local clock by one second and dispatches due items.
func (s *Session) OnTick(ctx context.Context) error {
	if s.clock.Tick() {
		s.mu.Lock()
		s.expired = true
		s.mu.Unlock()
		log.Warn().
			Str("room", s.cfg.RoomName).
			Int("ceiling_sec", models.SessionCeilingSeconds).
			Msg("session clock wrapped, agenda dispatch stopped")
	}
	return s.evaluate(ctx)
}

// OnMessage applies one inbound push channel message. Malformed payloads are logged and skipped.
func (s *Session) OnMessage(ctx context.Context, msg Message) error {
	switch msg.Event {
	case EventInitialSync:
		var payload InitialSyncPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			s.skip(msg, err)
			return nil
		}
		if payload.CurrentTime < 0 || payload.JoinTime < 0 {
			s.skip(msg, fmt.Errorf("negative time in snapshot"))
			return nil
		}
		s.applySnapshot(payload)
		return s.evaluate(ctx)

	case EventTimeSync:
		var serverElapsed int
		if err := json.Unmarshal(msg.Data, &serverElapsed); err != nil {
			s.skip(msg, err)
			return nil
		}
		if serverElapsed < 0 {
			s.skip(msg, fmt.Errorf("negative elapsed time %d", serverElapsed))
			return nil
		}
		s.clock.ApplyAuthoritative(serverElapsed)
		return s.evaluate(ctx)

	case EventActionExecutedSync:
		var actionID string
		if err := json.Unmarshal(msg.Data, &actionID); err != nil {
			s.skip(msg, err)
			return nil
		}
		if actionID == "" {
			s.skip(msg, errors.New("empty action id"))
			return nil
		}
		if s.executed.MarkExecuted(actionID) {
			log.Debug().
				Str("room", s.cfg.RoomName).
				Str("action_id", actionID).
				Msg("action executed by peer")
		}
		return nil

	default:
		log.Debug().Str("event", msg.Event).Msg("ignoring unknown event")
		return nil
	}
}

// UpsertItem adds or edits an item while the session is live.
func (s *Session) UpsertItem(item models.AgendaItem) error {
	return s.agenda.Upsert(item)
}

// RemoveItem deletes an item and the bookkeeping of its dispatch.
func (s *Session) RemoveItem(id string) bool {
	removed := s.agenda.Remove(id)
	if removed {
		s.executed.Forget(id)
	}
	return removed
}

// ItemState returns the lifecycle state of an item for this participant.
func (s *Session) ItemState(id string) ItemState {
	return s.dispatcher.State(id)
}

// Synced reports whether the initial snapshot has been applied.
func (s *Session) Synced() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.synced
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.RLock()
	synced, expired := s.synced, s.expired
	s.mu.RUnlock()

	state := State{
		RoomName: s.cfg.RoomName,
		Identity: s.cfg.Identity,
		Elapsed:  s.clock.Elapsed(),
		Synced:   synced,
		Expired:  expired,
		Items:    s.agenda.Len(),
		Executed: s.executed.IDs(),
	}
	if offset, ok := s.clock.JoinOffset(); ok {
		state.JoinOffset = &offset
	}
	return state
}

func (s *Session) applySnapshot(payload InitialSyncPayload) {
	s.clock.ApplyAuthoritative(payload.CurrentTime)
	s.executed.ApplySnapshot(payload.ExecutedActions)
	s.clock.setJoinOffset(payload.JoinTime)

	s.mu.Lock()
	s.synced = true
	s.expired = false
	s.mu.Unlock()

	log.Info().
		Str("room", s.cfg.RoomName).
		Int("elapsed", payload.CurrentTime).
		Int("join_offset", payload.JoinTime).
		Int("executed", len(payload.ExecutedActions)).
		Msg("initial sync applied")
}

func (s *Session) evaluate(ctx context.Context) error {
	s.mu.RLock()
	enabled := s.synced && !s.expired
	s.mu.RUnlock()
	if !enabled {
		return nil
	}
	_, err := s.dispatcher.Evaluate(ctx)
	return err
}

func (s *Session) broadcastExecuted(ctx context.Context, actionID string) error {
	return s.channel.Send(ctx, EventActionExecuted, ActionExecutedPayload{
		RoomName: s.cfg.RoomName,
		ActionID: actionID,
	})
}

func (s *Session) subscribe(inbox chan<- Message, done <-chan struct{}) func() {
	events := []string{EventInitialSync, EventTimeSync, EventActionExecutedSync}
	unsubscribers := make([]func(), 0, len(events))
	for _, event := range events {
		unsubscribers = append(unsubscribers, s.channel.Subscribe(event, func(data json.RawMessage) {
			select {
			case inbox <- Message{Event: event, Data: data}:
			case <-done:
			}
		}))
	}
	return func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}
}

func (s *Session) skip(msg Message, err error) {
	log.Warn().
		Err(err).
		Str("room", s.cfg.RoomName).
		Str("event", msg.Event).
		Msg("skipping malformed message")
}
