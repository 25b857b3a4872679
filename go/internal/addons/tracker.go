package addons

import (
	"encoding/json"
	"sync"

	"github.com/mcdev12/streamagenda/go/internal/agenda"
	"github.com/mcdev12/streamagenda/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Events the room server uses to publish addon state.
const (
	EventAddonState       = "addonState"
	EventAddonStateUpdate = "addonStateUpdate"
)

// Tracker mirrors which addons (polls, Q&A, custom panels) are active in a room.
type Tracker struct {
	mu     sync.RWMutex
	states map[string]models.AddonState
}

// NewTracker creates a tracker with every addon inactive.
func NewTracker() *Tracker {
	return &Tracker{states: defaultStates()}
}

func defaultStates() map[string]models.AddonState {
	return map[string]models.AddonState{
		string(models.ActionKindCustom): {Type: models.ActionKindCustom},
		string(models.ActionKindQA):     {Type: models.ActionKindQA},
		string(models.ActionKindPoll):   {Type: models.ActionKindPoll},
	}
}

// Attach subscribes the tracker to the push channel and returns the detach function.
func (t *Tracker) Attach(channel agenda.PushChannel) func() {
	offState := channel.Subscribe(EventAddonState, t.handleState)
	offUpdate := channel.Subscribe(EventAddonStateUpdate, t.handleUpdate)
	return func() {
		offState()
		offUpdate()
	}
}

// Replace sets the full addon map.
func (t *Tracker) Replace(states map[string]models.AddonState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.states = defaultStates()
	for key, state := range states {
		t.states[key] = state
	}
}

// Update sets the state of a single addon.
func (t *Tracker) Update(state models.AddonState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[string(state.Type)] = state
}

// Get returns the state of one addon.
func (t *Tracker) Get(kind models.ActionKind) (models.AddonState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, ok := t.states[string(kind)]
	return state, ok
}

// Snapshot returns a copy of every addon state.
func (t *Tracker) Snapshot() map[string]models.AddonState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]models.AddonState, len(t.states))
	for key, state := range t.states {
		out[key] = state
	}
	return out
}

// Active returns the addons currently running.
func (t *Tracker) Active() []models.AddonState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []models.AddonState
	for _, state := range t.states {
		if state.IsActive {
			out = append(out, state)
		}
	}
	return out
}

func (t *Tracker) handleState(data json.RawMessage) {
	var states map[string]models.AddonState
	if err := json.Unmarshal(data, &states); err != nil {
		log.Warn().Err(err).Str("event", EventAddonState).Msg("skipping malformed addon state")
		return
	}
	t.Replace(states)
}

func (t *Tracker) handleUpdate(data json.RawMessage) {
	var state models.AddonState
	if err := json.Unmarshal(data, &state); err != nil || state.Type == "" {
		log.Warn().Err(err).Str("event", EventAddonStateUpdate).Msg("skipping malformed addon update")
		return
	}
	t.Update(state)

	log.Debug().
		Str("addon", string(state.Type)).
		Bool("active", state.IsActive).
		Msg("addon state updated")
}
