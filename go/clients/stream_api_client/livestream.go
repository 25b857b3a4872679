package stream_api_client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/mcdev12/streamagenda/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Livestream is the part of a livestream record the agenda follower needs.
type Livestream struct {
	RoomName string
	CallType string
	Agenda   []models.AgendaItem
}

type livestreamResponse struct {
	Agenda   []json.RawMessage `json:"agenda"`
	CallType string            `json:"callType"`
}

// TokenRequest asks the backend for a session credential.
type TokenRequest struct {
	RoomName string          `json:"roomName"`
	UserType models.UserType `json:"userType"`
	UserName string          `json:"userName"`
	Wallet   string          `json:"wallet"`
}

// GetLivestream fetches a livestream and its agenda. Malformed agenda entries are skipped.
func (c *StreamApiClient) GetLivestream(ctx context.Context, roomName string) (*Livestream, error) {
	body, err := c.Get(ctx, LivestreamEndpoint+"/"+url.PathEscape(roomName))
	if err != nil {
		return nil, fmt.Errorf("failed to get livestream: %w", err)
	}

	var response livestreamResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}

	return &Livestream{
		RoomName: roomName,
		CallType: response.CallType,
		Agenda:   decodeAgenda(response.Agenda),
	}, nil
}

// FetchAgenda returns the agenda of a room.
func (c *StreamApiClient) FetchAgenda(ctx context.Context, roomName string) ([]models.AgendaItem, error) {
	stream, err := c.GetLivestream(ctx, roomName)
	if err != nil {
		return nil, err
	}
	return stream.Agenda, nil
}

// GenerateToken requests a session credential for a participant.
func (c *StreamApiClient) GenerateToken(ctx context.Context, req TokenRequest) (string, error) {
	body, err := c.Post(ctx, TokenEndpoint, req)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	var token string
	if err := json.Unmarshal(body, &token); err != nil {
		var wrapped struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return "", fmt.Errorf("failed to unmarshal token: %w", err)
		}
		token = wrapped.Token
	}
	if token == "" {
		return "", errors.New("backend returned an empty token")
	}
	return token, nil
}

func decodeAgenda(raw []json.RawMessage) []models.AgendaItem {
	items := make([]models.AgendaItem, 0, len(raw))
	for i, entry := range raw {
		var item models.AgendaItem
		if err := json.Unmarshal(entry, &item); err != nil {
			log.Warn().Err(err).Int("index", i).Msg("skipping undecodable agenda entry")
			continue
		}
		item = item.Normalize()
		if err := item.Validate(); err != nil {
			log.Warn().Err(err).Int("index", i).Msg("skipping invalid agenda entry")
			continue
		}
		items = append(items, item)
	}
	return items
}
