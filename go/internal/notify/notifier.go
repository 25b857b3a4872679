package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/streamagenda/go/internal/models"
)

// DefaultDuration is how long an agenda notification stays on screen.
const DefaultDuration = 5 * time.Second

// Variant selects how a notification is presented.
type Variant string

const (
	VariantCustom  Variant = "custom"
	VariantAction  Variant = "action"
	VariantPoll    Variant = "poll"
	VariantUnknown Variant = "unknown"
)

// VariantFor maps an agenda action onto its notification variant.
func VariantFor(kind models.ActionKind) Variant {
	switch kind {
	case models.ActionKindCustom, models.ActionKindQA:
		return VariantCustom
	case models.ActionKindTransaction, models.ActionKindGiveaway:
		return VariantAction
	case models.ActionKindPoll:
		return VariantPoll
	default:
		return VariantUnknown
	}
}

// Notification is what a participant sees when an agenda item fires.
type Notification struct {
	ID        string            `json:"id"`
	Variant   Variant           `json:"variant"`
	Action    models.ActionKind `json:"action"`
	ActionID  string            `json:"action_id"`
	Title     string            `json:"title"`
	Options   []string          `json:"options,omitempty"`
	UserType  models.UserType   `json:"user_type"`
	Duration  time.Duration     `json:"duration"`
	CreatedAt time.Time         `json:"created_at"`
}

// Sink presents notifications.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// Notifier turns due agenda items into notifications.
type Notifier struct {
	userType models.UserType
	duration time.Duration
	clock    clockwork.Clock
	sinks    []Sink
}

// NewNotifier creates a notifier for a participant of the given type.
func NewNotifier(userType models.UserType, clock clockwork.Clock, sinks ...Sink) *Notifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Notifier{
		userType: userType,
		duration: DefaultDuration,
		clock:    clock,
		sinks:    sinks,
	}
}

// Build creates the notification for an item.
func (n *Notifier) Build(item models.AgendaItem) Notification {
	notification := Notification{
		ID:        uuid.New().String(),
		Variant:   VariantFor(item.Action),
		Action:    item.Action,
		ActionID:  item.ID,
		Title:     item.Details.Item,
		UserType:  n.userType,
		Duration:  n.duration,
		CreatedAt: n.clock.Now(),
	}
	if notification.Variant == VariantPoll || notification.Variant == VariantAction {
		notification.Options = append([]string(nil), item.Details.Wallets...)
	}
	return notification
}

// Dispatch presents an item on every sink. It has the shape of agenda.DispatchFunc.
func (n *Notifier) Dispatch(ctx context.Context, item models.AgendaItem) error {
	notification := n.Build(item)

	var errs []error
	for _, sink := range n.sinks {
		if err := sink.Notify(ctx, notification); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", notification.ActionID, err))
		}
	}
	return errors.Join(errs...)
}
