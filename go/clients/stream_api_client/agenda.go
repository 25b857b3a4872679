package stream_api_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/mcdev12/streamagenda/go/internal/models"
)

// AgendaDraft is an agenda item that has not been saved yet.
type AgendaDraft struct {
	TimeStamp int
	Action    models.ActionKind
	Item      string
	// Wallets holds recipients, or the options of a poll.
	Wallets []string
}

type agendaDetailsBody struct {
	Item    string   `json:"item"`
	Wallets []string `json:"wallets"`
}

type agendaBody struct {
	TimeStamp int               `json:"timeStamp"`
	Action    string            `json:"action"`
	Details   agendaDetailsBody `json:"details"`
}

func (d AgendaDraft) body() agendaBody {
	wallets := d.Wallets
	if wallets == nil {
		wallets = []string{}
	}
	return agendaBody{
		TimeStamp: d.TimeStamp,
		Action:    d.Action.WireName(),
		Details:   agendaDetailsBody{Item: d.Item, Wallets: wallets},
	}
}

// AddAgenda saves new agenda items for a livestream and returns them as stored.
func (c *StreamApiClient) AddAgenda(ctx context.Context, streamID string, drafts []AgendaDraft) ([]models.AgendaItem, error) {
	payload := struct {
		Agendas []agendaBody `json:"agendas"`
	}{Agendas: make([]agendaBody, 0, len(drafts))}
	for _, d := range drafts {
		payload.Agendas = append(payload.Agendas, d.body())
	}

	body, err := c.Post(ctx, AgendaEndpoint+"/"+url.PathEscape(streamID), payload)
	if err != nil {
		return nil, fmt.Errorf("failed to add agenda: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}
	return decodeAgenda(raw), nil
}

// UpdateAgenda rewrites an existing agenda item, e.g. to move it on the timeline.
func (c *StreamApiClient) UpdateAgenda(ctx context.Context, id string, draft AgendaDraft) error {
	if _, err := c.Put(ctx, AgendaEndpoint+"/"+url.PathEscape(id), draft.body()); err != nil {
		return fmt.Errorf("failed to update agenda %s: %w", id, err)
	}
	return nil
}

// DeleteAgenda removes an agenda item.
func (c *StreamApiClient) DeleteAgenda(ctx context.Context, id string) error {
	if _, err := c.Delete(ctx, AgendaEndpoint+"/"+url.PathEscape(id)); err != nil {
		return fmt.Errorf("failed to delete agenda %s: %w", id, err)
	}
	return nil
}
