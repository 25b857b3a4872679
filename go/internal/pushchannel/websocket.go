package pushchannel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketConfig holds configuration for a room server connection.
type WebSocketConfig struct {
	URL              string
	Header           http.Header
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	MaxMessageSize   int64
	SendBufferSize   int
}

// DefaultWebSocketConfig returns default connection settings for url.
func DefaultWebSocketConfig(url string) WebSocketConfig {
	return WebSocketConfig{
		URL:              url,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		MaxMessageSize:   64 * 1024,
		SendBufferSize:   256,
	}
}

func (c WebSocketConfig) withDefaults() WebSocketConfig {
	d := DefaultWebSocketConfig(c.URL)
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = d.SendBufferSize
	}
	return c
}

// WebSocketChannel is a push channel over a single WebSocket connection.
// Frames are JSON envelopes; handlers run on the read goroutine.
type WebSocketChannel struct {
	ID          string
	ConnectedAt time.Time

	conn     *websocket.Conn
	config   WebSocketConfig
	send     chan []byte
	handlers *handlerRegistry

	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
}

// DialWebSocket connects to the room server and starts the read and write pumps.
func DialWebSocket(ctx context.Context, config WebSocketConfig) (*WebSocketChannel, error) {
	config = config.withDefaults()
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, config.URL, config.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", config.URL, err)
	}

	c := &WebSocketChannel{
		ID:          uuid.New().String(),
		ConnectedAt: time.Now(),
		conn:        conn,
		config:      config,
		send:        make(chan []byte, config.SendBufferSize),
		handlers:    newHandlerRegistry(),
		done:        make(chan struct{}),
		writerDone:  make(chan struct{}),
	}

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("url", config.URL).
		Msg("push channel connected")

	return c, nil
}

// Send queues an event for the room server.
func (c *WebSocketChannel) Send(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", event, err)
	}

	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers handler for event.
func (c *WebSocketChannel) Subscribe(event string, handler func(json.RawMessage)) func() {
	return c.handlers.add(event, handler)
}

// Done is closed once the connection is gone.
func (c *WebSocketChannel) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and waits for the writer to finish.
func (c *WebSocketChannel) Close() error {
	c.shutdown()
	<-c.writerDone
	return nil
}

func (c *WebSocketChannel) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump handles sending frames and keepalive pings
func (c *WebSocketChannel) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.writerDone)
	}()

	for {
		select {
		case <-c.done:
			c.flush()
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write frame to push channel")
				c.shutdown()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				c.shutdown()
				return
			}
		}
	}
}

// flush writes the frames still queued when the channel shuts down.
func (c *WebSocketChannel) flush() {
	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Int("dropped", len(c.send)+1).
					Msg("failed to flush push channel on close")
				return
			}
		default:
			return
		}
	}
}

// readPump decodes inbound frames and hands them to subscribers
func (c *WebSocketChannel) readPump() {
	defer c.shutdown()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})
	c.conn.SetPingHandler(func(appData string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.config.WriteTimeout))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected push channel close")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		var envelope Envelope
		if err := json.Unmarshal(message, &envelope); err != nil || envelope.Event == "" {
			log.Warn().
				Err(err).
				Str("connection_id", c.ID).
				Msg("dropping malformed push channel frame")
			continue
		}

		if c.handlers.deliver(envelope.Event, envelope.Data) == 0 {
			log.Debug().
				Str("connection_id", c.ID).
				Str("event", envelope.Event).
				Msg("no subscribers for event")
		}
	}
}
