package agenda

import (
	"context"
	"encoding/json"

	"github.com/mcdev12/streamagenda/go/internal/models"
)

// PushChannel is the real-time message transport shared by every participant in a room.
type PushChannel interface {
	Send(ctx context.Context, event string, payload any) error
	// Subscribe registers handler for event and returns a function that detaches it.
	Subscribe(event string, handler func(data json.RawMessage)) (unsubscribe func())
}

// Source fetches the agenda for a room once at session start.
type Source interface {
	FetchAgenda(ctx context.Context, roomName string) ([]models.AgendaItem, error)
}

// Event names exchanged on the push channel.
const (
	EventJoinRoom           = "joinRoom"
	EventActionExecuted     = "actionExecuted"
	EventInitialSync        = "initialSync"
	EventTimeSync           = "timeSync"
	EventActionExecutedSync = "actionExecutedSync"
)

// Message is one inbound push channel event.
type Message struct {
	Event string
	Data  json.RawMessage
}

// JoinRoomPayload announces a participant in a room.
type JoinRoomPayload struct {
	RoomName string `json:"roomName"`
	Identity string `json:"identity"`
}

// ActionExecutedPayload broadcasts a local dispatch to peers.
type ActionExecutedPayload struct {
	RoomName string `json:"roomName"`
	ActionID string `json:"actionId"`
}

// InitialSyncPayload is the authoritative snapshot a participant receives after joining.
type InitialSyncPayload struct {
	CurrentTime     int      `json:"currentTime"`
	ExecutedActions []string `json:"executedActions"`
	JoinTime        int      `json:"joinTime"`
}
