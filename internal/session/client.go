// Package session implements the chat-session side of the system: the
// stateful client that queues attachments, activates tools, posts messages
// to the workflow webhook, and listens on the relay's WebSocket for
// responses.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/etra-web/relay/internal/attachment"
	"github.com/etra-web/relay/internal/config"
	"github.com/etra-web/relay/internal/domain"
	"github.com/etra-web/relay/internal/relay"
)

// Status is a delivery state reported through OnStatus as a send progresses.
type Status string

const (
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusError   Status = "error"
)

// DefaultReconnectDelay is the fixed pause between reconnect attempts.
// Reconnection is flat, not backed off: the relay sits on the same host or
// LAN, so hammering it every few seconds is harmless and recovers fast.
const DefaultReconnectDelay = 3 * time.Second

// DefaultSendTimeout bounds a single webhook POST.
const DefaultSendTimeout = 30 * time.Second

// ErrEmptyMessage is returned when a send has neither text nor attachments.
var ErrEmptyMessage = errors.New("nothing to send: no text and no attachments")

// Client is one chat session. It owns the identity pair (a persistent user id
// and a per-session id), the mutable State, the webhook transport and the
// WebSocket listener. Callbacks fire from the listener goroutine; keep them
// quick.
type Client struct {
	// WebhookURL receives outbound messages; WSURL is the relay fan-out
	// endpoint the session listens on.
	WebhookURL string
	WSURL      string

	UserID    string
	SessionID string

	// Environment descriptors folded into outbound metadata.
	UserAgent string
	Platform  string
	Language  string

	State *State

	// ReconnectDelay overrides DefaultReconnectDelay, mostly for tests.
	ReconnectDelay time.Duration

	// OnMessage receives every rendered chat response. OnStatus tracks the
	// delivery state of sends by message id. OnTyping toggles the waiting
	// indicator. All three are optional.
	OnMessage func(domain.Message)
	OnStatus  func(messageID string, status Status)
	OnTyping  func(active bool)

	encoder    *attachment.Encoder
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// NewClient builds a session against the given relay and webhook endpoints.
func NewClient(cfg *config.Config, wsURL string) *Client {
	enc := attachment.NewEncoder(cfg)
	return &Client{
		WebhookURL:     cfg.WebhookURL,
		WSURL:          wsURL,
		UserID:         domain.NewUserID(),
		SessionID:      domain.NewSessionID(),
		UserAgent:      "etra-web-relay/1.0",
		State:          NewState(enc),
		ReconnectDelay: DefaultReconnectDelay,
		encoder:        enc,
		httpClient:     &http.Client{Timeout: DefaultSendTimeout},
		dialer:         websocket.DefaultDialer,
	}
}

// Listen connects to the relay and consumes chat_response frames until ctx is
// canceled. Every connection loss, including a failed dial, schedules exactly
// one reconnect attempt after ReconnectDelay; the loop never gives up on its
// own.
func (c *Client) Listen(ctx context.Context) error {
	for {
		if err := c.runConnection(ctx); err != nil {
			slog.Debug("Relay connection lost", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.ReconnectDelay):
		}
	}
}

func (c *Client) runConnection(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.WSURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	slog.Info("Connected to relay", "url", c.WSURL, "sessionId", c.SessionID)

	// Close the socket when ctx ends so the blocked read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleFrame(payload)
	}
}

// handleFrame renders a broadcast frame. Frames that are not chat responses,
// and payloads that do not parse, are skipped; a malformed broadcast must
// never kill the listener.
func (c *Client) handleFrame(payload []byte) {
	msg, ok, err := relay.DecodeFrame(payload)
	if err != nil {
		slog.Warn("Skipping malformed relay frame", "error", err)
		return
	}
	if !ok {
		return
	}
	c.typing(false)
	if c.OnMessage != nil {
		c.OnMessage(msg)
	}
}

func (c *Client) status(messageID string, s Status) {
	if c.OnStatus != nil {
		c.OnStatus(messageID, s)
	}
}

func (c *Client) typing(active bool) {
	if c.OnTyping != nil {
		c.OnTyping(active)
	}
}
