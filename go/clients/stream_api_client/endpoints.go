package stream_api_client

const (
	// API Endpoints
	LivestreamEndpoint = "/livestream"
	TokenEndpoint      = "/livestream/token"
	AgendaEndpoint     = "/agenda"
)
