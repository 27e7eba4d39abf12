// Package relay is the HTTP-facing boundary of the process: it accepts
// asynchronous callback payloads from the external backend, normalizes them,
// and hands them to the bus for WebSocket fan-out.
package relay

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/etra-web/relay/internal/codec"
	"github.com/etra-web/relay/internal/domain"
	"github.com/etra-web/relay/internal/pubsub"
)

// clientCounter is the slice of the bridge the handler needs for /health.
type clientCounter interface {
	ClientCount() int
}

// Handler serves the webhook callback and diagnostic endpoints.
type Handler struct {
	publisher pubsub.Publisher
	clients   clientCounter
}

// NewHandler creates a relay handler publishing to the given bus.
func NewHandler(pub pubsub.Publisher, clients clientCounter) *Handler {
	return &Handler{publisher: pub, clients: clients}
}

// ChatResponsePost handles POST /webhook/chat-response, the JSON callback
// variant. The handler always answers: accepted payloads get an ack with the
// resolved message id, and only a normalization failure produces a
// server-error body. Nothing is allowed to escape this boundary.
func (h *Handler) ChatResponsePost(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return h.normalizeError(c, err)
	}

	msg, err := codec.NormalizeInbound(body, time.Now())
	if err != nil {
		return h.normalizeError(c, err)
	}

	return h.deliver(c, msg)
}

// MixedContentPost handles POST /webhook/mixed-content. It accepts both the
// multipart upload variant and the raw form-field variant, distinguished by
// content type; both funnel into the same normalization policy.
func (h *Handler) MixedContentPost(c echo.Context) error {
	var (
		msg domain.Message
		err error
	)

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		msg, err = codec.NormalizeMultipart(c.Request(), time.Now())
	} else {
		msg, err = codec.NormalizeForm(c.Request(), time.Now())
	}
	if err != nil {
		return h.normalizeError(c, err)
	}

	return h.deliver(c, msg)
}

// Base64ContentPost handles POST /webhook/base64-content, the JSON variant
// whose files arrive pre-encoded as base64 data URIs. The tolerant JSON
// normalizer covers it; the route stays distinct because the external
// workflow addresses each transport by URL.
func (h *Handler) Base64ContentPost(c echo.Context) error {
	return h.ChatResponsePost(c)
}

// HealthGet handles GET /health.
func (h *Handler) HealthGet(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Clients:   h.clients.ClientCount(),
	})
}

// TestPost handles POST /test: synthetic message injection for diagnostics.
// The optional body {"message": "..."} overrides the default text.
func (h *Handler) TestPost(c echo.Context) error {
	var req struct {
		Message string `json:"message"`
	}
	// A missing or malformed body still produces a test broadcast.
	if err := c.Bind(&req); err != nil || req.Message == "" {
		req.Message = "Test message from server"
	}

	msg := domain.Message{
		ID:        domain.NewMessageID(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Kind:      domain.KindText,
		Content:   req.Message,
		Sender:    domain.SenderBot,
	}

	return h.deliver(c, msg)
}

// deliver broadcasts a normalized message and acknowledges it.
func (h *Handler) deliver(c echo.Context, msg domain.Message) error {
	frame, err := EncodeChatResponse(msg)
	if err != nil {
		return h.normalizeError(c, err)
	}

	err = h.publisher.Publish(context.Background(), pubsub.Message{
		Topic:   pubsub.TopicResponses,
		UserID:  msg.UserID,
		Payload: frame,
	})
	if err != nil {
		// Fan-out is fire-and-forget; a bus failure is logged but the
		// callback is still acknowledged so the backend does not retry.
		slog.Error("Failed to publish chat response", "messageId", msg.ID, "error", err)
	}

	return c.JSON(http.StatusOK, AckResponse{Status: "received", MessageID: msg.ID})
}

func (h *Handler) normalizeError(c echo.Context, err error) error {
	slog.Error("Failed to normalize inbound payload", "error", err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:    "normalization_failed",
		Message: err.Error(),
	})
}
