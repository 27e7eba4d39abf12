// Package websocket bridges browser sessions and the pub/sub bus: it owns
// the registry of live connections and fans bus messages out to all of them.
package websocket

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"

	"github.com/etra-web/relay/internal/pubsub"
)

const (
	// Time allowed to write a single message to a peer.
	writeWait = 10 * time.Second
	// Outbound buffer per client. A client that falls this far behind has
	// frames dropped, but stays registered until its transport closes.
	sendBuffer = 256
)

// Client represents a single connected WebSocket session. A client has only
// a liveness state and an opaque handle; it is owned exclusively by the
// bridge's registry.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Bridge manages all WebSocket connections and routes messages between
// connected clients and the pub/sub bus.
type Bridge struct {
	publisher pubsub.Publisher

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewBridge initializes a Bridge, ready to accept connections.
func NewBridge(pub pubsub.Publisher) *Bridge {
	return &Bridge{
		publisher: pub,
		clients:   make(map[*Client]bool),
	}
}

// Start subscribes the bridge to bot responses on the bus. Everything
// published on pubsub.TopicResponses is broadcast verbatim to every
// connected client.
func (b *Bridge) Start(ctx context.Context, sub pubsub.Subscriber) error {
	return sub.Subscribe(ctx, pubsub.TopicResponses, func(ctx context.Context, msg pubsub.Message) error {
		b.Broadcast(msg.Payload)
		return nil
	})
}

// register adds a connection to the registry. Registering the same client
// twice is a no-op.
func (b *Bridge) register(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.clients[c] {
		return
	}
	b.clients[c] = true
	slog.Info("Client registered", "clientID", c.id, "total", len(b.clients))
}

// unregister removes a connection. It is called from the transport's own
// close/error path and is safe to call more than once for the same client.
// A failed send never reaches here; only the transport decides liveness.
func (b *Bridge) unregister(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.clients[c] {
		return
	}
	delete(b.clients, c)
	close(c.send)
	slog.Info("Client unregistered", "clientID", c.id, "total", len(b.clients))
}

// Broadcast attempts delivery of one payload to every currently-open
// connection. The payload is already serialized; each client gets the same
// bytes. The read lock is held for the entire sweep: unregister closes the
// send channel under the write lock, so a send outside the lock could hit a
// closed channel. The non-blocking send keeps a full or stalled client from
// stalling the sweep; a skipped client stays registered until its transport
// closes.
func (b *Bridge) Broadcast(payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for c := range b.clients {
		select {
		case c.send <- payload:
		default:
			slog.Warn("Client send buffer full, dropping frame", "clientID", c.id)
		}
	}
}

// ClientCount reports the number of currently registered connections.
func (b *Bridge) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Handler returns an echo.HandlerFunc that upgrades the request and runs the
// connection's read and write pumps.
func (b *Bridge) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			// The widget is served from arbitrary origins during development;
			// deployments should front this with an origin check.
			InsecureSkipVerify: true,
		})
		if err != nil {
			slog.Error("Failed to upgrade connection to WebSocket", "error", err)
			return err
		}

		client := &Client{
			id:   c.Response().Header().Get(echo.HeaderXRequestID),
			conn: conn,
			send: make(chan []byte, sendBuffer),
		}
		b.register(client)

		go b.writePump(client)
		go b.readPump(client)

		return nil
	}
}

// readPump reads frames from the connection and republishes them on the bus.
// It is also the sole trigger for unregistration: when the read side fails,
// the connection is gone.
func (b *Bridge) readPump(c *Client) {
	defer func() {
		b.unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "client disconnected")
	}()

	for {
		_, payload, err := c.conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				slog.Info("WebSocket closed normally by client", "clientID", c.id)
			} else if err != io.EOF {
				slog.Error("WebSocket read error", "clientID", c.id, "error", err)
			}
			return
		}

		msg := pubsub.Message{
			Topic:   pubsub.TopicInbound,
			UserID:  c.id,
			Payload: payload,
			Metadata: map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			},
		}
		if err := b.publisher.Publish(context.Background(), msg); err != nil {
			slog.Error("Failed to publish inbound client frame", "clientID", c.id, "error", err)
		}
	}
}

// writePump drains the client's send buffer into the connection. A write
// error ends the pump; cleanup still waits for the transport's own close
// signal on the read side.
func (b *Bridge) writePump(c *Client) {
	defer c.conn.Close(websocket.StatusNormalClosure, "server-side cleanup")

	for payload := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		err := c.conn.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			slog.Error("WebSocket write error", "clientID", c.id, "error", err)
			return
		}
	}
}
