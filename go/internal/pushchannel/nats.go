package pushchannel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// IdentityHeader carries the sender identity on published messages.
const IdentityHeader = "Stream-Identity"

// NATSConfig holds configuration for the NATS push channel
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	RoomName      string
	Identity      string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS push channel configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "livestream",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSChannel is a push channel over NATS subjects.
// Room-wide events use <prefix>.<room>.<event>; events addressed to one
// participant (such as initialSync) use <prefix>.<room>.<identity>.<event>.
type NATSChannel struct {
	nc     *nats.Conn
	config NATSConfig

	done     chan struct{}
	doneOnce sync.Once
	mu       sync.Mutex
	err      error
}

// DialNATS connects to NATS for the configured room and identity.
func DialNATS(config NATSConfig) (*NATSChannel, error) {
	if config.RoomName == "" || config.Identity == "" {
		return nil, errors.New("nats push channel needs a room and an identity")
	}

	c := &NATSChannel{config: config, done: make(chan struct{})}

	opts := []nats.Option{
		nats.Name("streamagenda-" + config.Identity),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info().Str("room", config.RoomName).Msg("NATS connection closed")
			c.shutdown()
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	log.Info().
		Str("url", nc.ConnectedUrl()).
		Str("room", config.RoomName).
		Msg("push channel connected over NATS")

	c.nc = nc
	return c, nil
}

// Send publishes an event to the room subject.
func (c *NATSChannel) Send(ctx context.Context, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.nc.IsClosed() || c.nc.IsDraining() {
		return ErrChannelClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}

	msg := nats.NewMsg(RoomSubject(c.config.SubjectPrefix, c.config.RoomName, event))
	msg.Data = data
	msg.Header.Set(IdentityHeader, c.config.Identity)

	if err := c.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// Subscribe listens for event on both the room subject and this participant's direct subject.
func (c *NATSChannel) Subscribe(event string, handler func(json.RawMessage)) func() {
	subjects := []string{
		RoomSubject(c.config.SubjectPrefix, c.config.RoomName, event),
		DirectSubject(c.config.SubjectPrefix, c.config.RoomName, c.config.Identity, event),
	}

	var subs []*nats.Subscription
	for _, subject := range subjects {
		sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
			handler(json.RawMessage(msg.Data))
		})
		if err != nil {
			log.Error().Err(err).Str("subject", subject).Msg("failed to subscribe")
			c.fail(fmt.Errorf("subscribe %s: %w", subject, err))
			continue
		}
		subs = append(subs, sub)
	}

	return func() {
		for _, sub := range subs {
			if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
				log.Warn().Err(err).Str("subject", sub.Subject).Msg("failed to unsubscribe")
			}
		}
	}
}

// Close drains pending messages and closes the connection.
// Done is closed once the drain has finished.
func (c *NATSChannel) Close() error {
	if c.nc.IsClosed() {
		c.shutdown()
		return nil
	}
	return c.nc.Drain()
}

// Done is closed once the connection is gone or a subscription failed.
func (c *NATSChannel) Done() <-chan struct{} {
	return c.done
}

// Err returns the first subscription failure, if any.
func (c *NATSChannel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *NATSChannel) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
	c.shutdown()
}

func (c *NATSChannel) shutdown() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
}

// RoomSubject builds the subject shared by every participant of a room.
func RoomSubject(prefix, room, event string) string {
	return strings.Join([]string{subjectToken(prefix), subjectToken(room), subjectToken(event)}, ".")
}

// DirectSubject builds the subject addressed to a single participant.
func DirectSubject(prefix, room, identity, event string) string {
	return strings.Join([]string{subjectToken(prefix), subjectToken(room), subjectToken(identity), subjectToken(event)}, ".")
}

// subjectToken replaces characters NATS reserves inside a subject token.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
