package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// DefaultSendBuffer is the number of outbound messages queued per connection.
	DefaultSendBuffer = 32
	// DefaultReadLimit bounds a single inbound frame.
	DefaultReadLimit = 1 << 20

	writeWait = 10 * time.Second
)

var (
	// ErrConnectionClosed is returned when sending to a connection that already went away.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when a client does not drain its messages fast enough.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Conversation is the engine surface driven by websocket connections.
type Conversation interface {
	Connect(ctx context.Context, sessionID string) error
	Message(ctx context.Context, sessionID, text string) error
	Disconnect(ctx context.Context, sessionID string) error
}

// Hub tracks live websocket connections and delivers bot messages to them.
// Every connection is one session, identified by a random id.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	upgrader   websocket.Upgrader
	sendBuffer int
	readLimit  int64
	newID      func() string
	logger     *slog.Logger
}

type client struct {
	id   string
	conn *websocket.Conn
	out  chan string
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// HubOption configures the Hub.
type HubOption func(*Hub)

// WithHubLogger configures a logger for the Hub.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithSendBuffer sets the per-connection outbound queue size.
func WithSendBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithReadLimit sets the maximum inbound frame size in bytes.
func WithReadLimit(n int64) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.readLimit = n
		}
	}
}

// WithSessionIDs overrides the session id generator.
func WithSessionIDs(fn func() string) HubOption {
	return func(h *Hub) {
		h.newID = fn
	}
}

// NewHub creates an empty Hub. Any origin is accepted.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sendBuffer: DefaultSendBuffer,
		readLimit:  DefaultReadLimit,
		newID:      uuid.NewString,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ ports.MessageSender = (*Hub)(nil)

// Send queues text for the connection of sessionID. It never blocks on a slow client.
func (h *Hub) Send(ctx context.Context, sessionID, text string) error {
	h.mu.RLock()
	c, ok := h.clients[sessionID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case c.out <- text:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and runs the connection until the peer goes away.
// Open, text frames and close map to Connect, Message and Disconnect.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, conv Conversation) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		h.logger.Warn("Websocket upgrade failed", "err", err)
		return
	}
	conn.SetReadLimit(h.readLimit)

	c := &client{
		id:   h.newID(),
		conn: conn,
		out:  make(chan string, h.sendBuffer),
		done: make(chan struct{}),
	}
	h.register(c)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(c)
	}()

	// Events outlive the HTTP request context once the connection is hijacked.
	ctx := context.WithoutCancel(r.Context())
	logger := h.logger.With("session_id", c.id)
	logger.Info("Client connected", "remote", r.RemoteAddr)

	if err := conv.Connect(ctx, c.id); err != nil {
		logger.Debug("Connect ended with session error", "err", err)
	}

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Websocket read failed", "err", err)
			}
			break
		}
		if kind != websocket.TextMessage {
			continue
		}
		if err := conv.Message(ctx, c.id, string(data)); err != nil {
			logger.Debug("Message ended with session error", "err", err)
		}
	}

	if err := conv.Disconnect(ctx, c.id); err != nil {
		logger.Warn("Disconnect failed", "err", err)
	}
	h.unregister(c)
	wg.Wait()
	conn.Close()
	logger.Info("Client disconnected")
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	c.close()
}

// writeLoop is the only writer of c.conn.
func (h *Hub) writeLoop(c *client) {
	for {
		select {
		case text := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				h.logger.Warn("Websocket write failed", "session_id", c.id, "err", err)
				c.close()
				c.conn.Close()
				return
			}
		case <-c.done:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}

// Shutdown closes every open connection. Their Serve loops then run Disconnect.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.close()
		c.conn.Close()
	}
}
