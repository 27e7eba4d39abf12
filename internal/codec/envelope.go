// Package codec builds and normalizes the wire envelopes exchanged with the
// external workflow backend. Encoding is a pure transform; all validation
// happens before (attachment checks) or after (HTTP status) this layer.
package codec

import (
	"github.com/etra-web/relay/internal/domain"
)

// Envelope is the JSON body POSTed to the external webhook, and the shape
// the relay re-emits to browsers inside a chat_response frame.
type Envelope struct {
	MessageID   string              `json:"messageId"`
	Timestamp   string              `json:"timestamp"`
	MessageType string              `json:"messageType"`
	Content     string              `json:"content"`
	UserID      string              `json:"userId"`
	Sender      string              `json:"sender"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
	Files       []domain.Attachment `json:"files,omitempty"`
}

// Encode maps a Message onto the wire envelope.
//
// Command dispatch is deliberately flattened: the backend recognizes commands
// only through metadata.commandId, never through a distinct messageType, so a
// command message goes out as messageType "text" with the command id nested
// in metadata. This mapping must not change without a matching change in the
// external workflow.
func Encode(m domain.Message) Envelope {
	meta := make(map[string]any, len(m.Metadata)+2)
	for k, v := range m.Metadata {
		meta[k] = v
	}
	if m.SessionID != "" {
		meta["sessionId"] = m.SessionID
	}

	messageType := string(m.Kind)
	if m.Kind == domain.KindCommand {
		messageType = string(domain.KindText)
		if _, ok := meta["commandId"]; !ok {
			if tool, ok := meta["activeTool"]; ok {
				meta["commandId"] = tool
			}
		}
	}

	if len(meta) == 0 {
		meta = nil
	}

	return Envelope{
		MessageID:   m.ID,
		Timestamp:   m.Timestamp,
		MessageType: messageType,
		Content:     m.Content,
		UserID:      m.UserID,
		Sender:      string(m.Sender),
		Metadata:    meta,
		Files:       m.Attachments,
	}
}

// Decode maps a wire envelope back to a Message. A "text" envelope carrying
// metadata.commandId is recognized as the command variant, undoing the
// flattening applied by Encode.
func Decode(env Envelope) domain.Message {
	kind := domain.Kind(env.MessageType)
	if kind == domain.KindText && env.Metadata != nil {
		if _, ok := env.Metadata["commandId"]; ok {
			kind = domain.KindCommand
		}
	}

	var sessionID string
	if env.Metadata != nil {
		if s, ok := env.Metadata["sessionId"].(string); ok {
			sessionID = s
		}
	}

	return domain.Message{
		ID:          env.MessageID,
		Timestamp:   env.Timestamp,
		Kind:        kind,
		Content:     env.Content,
		Sender:      domain.Sender(env.Sender),
		UserID:      env.UserID,
		SessionID:   sessionID,
		Attachments: env.Files,
		Metadata:    env.Metadata,
	}
}
