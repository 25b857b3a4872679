package agenda

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mcdev12/streamagenda/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrOffsetTaken is returned when two items would fire at the same second.
var ErrOffsetTaken = errors.New("agenda offset already taken")

// Agenda is the set of items scheduled for one session, kept ordered by offset.
type Agenda struct {
	mu    sync.RWMutex
	items []models.AgendaItem
}

// NewAgenda builds an agenda from fetched items. Malformed or colliding entries are skipped.
func NewAgenda(items []models.AgendaItem) *Agenda {
	a := &Agenda{}
	for _, item := range items {
		if err := a.Upsert(item); err != nil {
			log.Warn().
				Err(err).
				Str("action_id", item.ID).
				Int("time_stamp", item.TimeStamp).
				Msg("skipping agenda item")
		}
	}
	return a
}

// Upsert adds an item or replaces the item with the same id.
func (a *Agenda) Upsert(item models.AgendaItem) error {
	item = item.Normalize()
	if err := item.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	idx := -1
	for i, existing := range a.items {
		if existing.ID == item.ID {
			idx = i
			continue
		}
		if existing.TimeStamp == item.TimeStamp {
			return fmt.Errorf("%w: %ds is used by %s", ErrOffsetTaken, item.TimeStamp, existing.ID)
		}
	}

	if idx >= 0 {
		a.items[idx] = item
	} else {
		a.items = append(a.items, item)
	}
	sort.SliceStable(a.items, func(i, j int) bool {
		return a.items[i].TimeStamp < a.items[j].TimeStamp
	})
	return nil
}

// Remove deletes an item. It reports whether the item existed.
func (a *Agenda) Remove(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, item := range a.items {
		if item.ID == id {
			a.items = append(a.items[:i], a.items[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the item with the given id.
func (a *Agenda) Get(id string) (models.AgendaItem, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, item := range a.items {
		if item.ID == id {
			return item, true
		}
	}
	return models.AgendaItem{}, false
}

// Items returns a copy of the items ordered by offset.
func (a *Agenda) Items() []models.AgendaItem {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]models.AgendaItem, len(a.items))
	copy(out, a.items)
	return out
}

// Earliest returns the id of the earliest-scheduled item.
func (a *Agenda) Earliest() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.items) == 0 {
		return "", false
	}
	return a.items[0].ID, true
}

// Len returns the number of scheduled items.
func (a *Agenda) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}
