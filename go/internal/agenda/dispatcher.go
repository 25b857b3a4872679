package agenda

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/streamagenda/go/internal/models"
	"github.com/rs/zerolog/log"
)

// firstItemGraceSeconds is how long after joining the earliest item may still fire
// even though it was scheduled at or before the join offset.
const firstItemGraceSeconds = 5

// DispatchFunc performs the side effect for a due agenda item. It must return quickly.
type DispatchFunc func(ctx context.Context, item models.AgendaItem) error

// BroadcastFunc tells peers that an item was dispatched locally.
type BroadcastFunc func(ctx context.Context, actionID string) error

// ItemState is the per-participant lifecycle of an agenda item.
type ItemState string

const (
	ItemPending    ItemState = "PENDING"
	ItemDispatched ItemState = "DISPATCHED"
)

// Dispatcher decides which agenda items are newly due and fires each exactly once.
type Dispatcher struct {
	agenda    *Agenda
	clock     *SessionClock
	executed  *ExecutedSet
	dispatch  DispatchFunc
	broadcast BroadcastFunc
}

// NewDispatcher creates a dispatcher over the given session state.
func NewDispatcher(agenda *Agenda, clock *SessionClock, executed *ExecutedSet, dispatch DispatchFunc, broadcast BroadcastFunc) *Dispatcher {
	return &Dispatcher{
		agenda:    agenda,
		clock:     clock,
		executed:  executed,
		dispatch:  dispatch,
		broadcast: broadcast,
	}
}

// shouldFire is the due test for a single item.
func shouldFire(item models.AgendaItem, isEarliest bool, elapsed, joinOffset int, executed bool) bool {
	if executed || item.TimeStamp > elapsed {
		return false
	}
	if item.TimeStamp > joinOffset {
		return true
	}
	return isEarliest && elapsed-joinOffset < firstItemGraceSeconds
}

// Evaluate checks every item against the clock and dispatches the due ones.
// It is safe for concurrent use: an item is marked executed before its dispatch runs,
// so only one caller ever dispatches it. A failing dispatch stays executed and its
// error is joined into the returned error after the remaining items ran.
func (d *Dispatcher) Evaluate(ctx context.Context) ([]string, error) {
	joinOffset, joined := d.clock.JoinOffset()
	if !joined {
		return nil, nil
	}
	elapsed := d.clock.Elapsed()
	earliest, _ := d.agenda.Earliest()

	var fired []string
	var errs []error
	for _, item := range d.agenda.Items() {
		if !shouldFire(item, item.ID == earliest, elapsed, joinOffset, d.executed.HasExecuted(item.ID)) {
			continue
		}
		// Only the caller that adds the id dispatches it.
		if !d.executed.MarkExecuted(item.ID) {
			continue
		}
		if err := d.fire(ctx, item); err != nil {
			errs = append(errs, err)
		}
		fired = append(fired, item.ID)
	}
	return fired, errors.Join(errs...)
}

// State reports whether an item is still pending or already dispatched.
func (d *Dispatcher) State(id string) ItemState {
	if d.executed.HasExecuted(id) {
		return ItemDispatched
	}
	return ItemPending
}

func (d *Dispatcher) fire(ctx context.Context, item models.AgendaItem) error {
	dispatchErr := d.invoke(ctx, item)

	logEvent := log.Info()
	if dispatchErr != nil {
		logEvent = log.Error().Err(dispatchErr)
	}
	logEvent.
		Str("action_id", item.ID).
		Str("action", string(item.Action)).
		Int("time_stamp", item.TimeStamp).
		Int("elapsed", d.clock.Elapsed()).
		Msg("agenda item dispatched")

	if d.broadcast == nil {
		return dispatchErr
	}
	if err := d.broadcast(ctx, item.ID); err != nil {
		return errors.Join(dispatchErr, fmt.Errorf("broadcast %s: %w", item.ID, err))
	}
	return dispatchErr
}

func (d *Dispatcher) invoke(ctx context.Context, item models.AgendaItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch %s panicked: %v", item.ID, r)
		}
	}()
	if err := d.dispatch(ctx, item); err != nil {
		return fmt.Errorf("dispatch %s: %w", item.ID, err)
	}
	return nil
}
