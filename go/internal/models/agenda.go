package models

import (
	"errors"
	"fmt"
)

// SessionCeilingSeconds is the length of a livestream session. Agenda offsets live in [0, SessionCeilingSeconds).
const SessionCeilingSeconds = 3600

// ErrInvalidItem is returned when an agenda item cannot be scheduled.
var ErrInvalidItem = errors.New("invalid agenda item")

// ActionKind defines the category of an agenda action.
type ActionKind string

const (
	ActionKindPoll        ActionKind = "Poll"
	ActionKindTransaction ActionKind = "Transaction"
	ActionKindGiveaway    ActionKind = "Giveaway"
	ActionKindQA          ActionKind = "Q&A"
	ActionKindCustom      ActionKind = "Custom"

	// actionKindQAWire is how the backend spells Q&A on the wire.
	actionKindQAWire = "Q_A"
)

// ParseActionKind normalises a wire action name into an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	switch s {
	case string(ActionKindPoll):
		return ActionKindPoll, nil
	case string(ActionKindTransaction):
		return ActionKindTransaction, nil
	case string(ActionKindGiveaway):
		return ActionKindGiveaway, nil
	case string(ActionKindQA), actionKindQAWire:
		return ActionKindQA, nil
	case string(ActionKindCustom):
		return ActionKindCustom, nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidItem, s)
	}
}

// WireName returns the spelling the backend expects for this kind.
func (k ActionKind) WireName() string {
	if k == ActionKindQA {
		return actionKindQAWire
	}
	return string(k)
}

// AgendaDetails holds the kind-specific payload of an agenda item.
// For polls Item is the title and Wallets carries the options.
type AgendaDetails struct {
	AgendaID string   `json:"agendaId,omitempty" yaml:"agendaId,omitempty"`
	ID       int      `json:"id,omitempty" yaml:"id,omitempty"`
	Item     string   `json:"item" yaml:"item"`
	Wallets  []string `json:"wallets" yaml:"wallets"`
}

// AgendaItem is a scheduled in-session action.
type AgendaItem struct {
	ID           string        `json:"id" yaml:"id"`
	LiveStreamID string        `json:"liveStreamId,omitempty" yaml:"liveStreamId,omitempty"`
	TimeStamp    int           `json:"timeStamp" yaml:"timeStamp"`
	Action       ActionKind    `json:"action" yaml:"action"`
	Details      AgendaDetails `json:"details" yaml:"details"`
}

// Validate reports whether the item can be scheduled.
func (a AgendaItem) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidItem)
	}
	if a.TimeStamp < 0 || a.TimeStamp >= SessionCeilingSeconds {
		return fmt.Errorf("%w: %s scheduled at %ds is outside the session", ErrInvalidItem, a.ID, a.TimeStamp)
	}
	if _, err := ParseActionKind(string(a.Action)); err != nil {
		return fmt.Errorf("%s: %w", a.ID, err)
	}
	return nil
}

// Normalize rewrites wire spellings (Q_A) into their canonical kind.
func (a AgendaItem) Normalize() AgendaItem {
	if kind, err := ParseActionKind(string(a.Action)); err == nil {
		a.Action = kind
	}
	return a
}

// UserType defines the role of a participant in a livestream.
type UserType string

const (
	UserTypeHost  UserType = "host"
	UserTypeGuest UserType = "guest"
)

// AddonData is the payload attached to an active addon.
type AddonData struct {
	Title   string        `json:"title"`
	Details AgendaDetails `json:"details"`
}

// AddonState reports whether an addon of a given kind is running in the room.
type AddonState struct {
	Type     ActionKind `json:"type"`
	IsActive bool       `json:"isActive"`
	Data     *AddonData `json:"data,omitempty"`
}
