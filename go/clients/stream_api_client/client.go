package stream_api_client

import (
	"github.com/mcdev12/streamagenda/go/clients"
)

type StreamApiClient struct {
	*clients.BaseClient
}

func NewStreamApiClient(baseURL string) *StreamApiClient {
	client := &StreamApiClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader("Accept", "application/json")

	return client
}
