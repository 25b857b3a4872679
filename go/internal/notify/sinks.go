package notify

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

// LogSink writes notifications to the global logger.
type LogSink struct{}

func (LogSink) Notify(_ context.Context, n Notification) error {
	log.Info().
		Str("notification_id", n.ID).
		Str("variant", string(n.Variant)).
		Str("action", string(n.Action)).
		Str("action_id", n.ActionID).
		Str("title", n.Title).
		Strs("options", n.Options).
		Str("user_type", string(n.UserType)).
		Dur("duration", n.Duration).
		Msg("agenda notification")
	return nil
}

// WriterSink writes one JSON document per notification.
type WriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriterSink creates a sink writing JSON lines to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

func (s *WriterSink) Notify(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(n)
}
