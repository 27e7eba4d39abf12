package relay

import (
	"encoding/json"

	"github.com/etra-web/relay/internal/domain"
)

// FrameTypeChatResponse is the only frame type browser sessions render;
// anything else is ignored on the client side.
const FrameTypeChatResponse = "chat_response"

// Frame is the envelope broadcast to WebSocket clients.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EncodeChatResponse serializes a message into a chat_response frame. The
// frame is marshaled once here and the same bytes go to every client.
func EncodeChatResponse(m domain.Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: FrameTypeChatResponse, Data: data})
}

// DecodeFrame parses a broadcast frame and reports whether it is a renderable
// chat response. Unknown frame shapes return ok=false with no error; they are
// meant to be skipped silently.
func DecodeFrame(payload []byte) (domain.Message, bool, error) {
	var f Frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return domain.Message{}, false, err
	}
	if f.Type != FrameTypeChatResponse || len(f.Data) == 0 {
		return domain.Message{}, false, nil
	}
	var m domain.Message
	if err := json.Unmarshal(f.Data, &m); err != nil {
		return domain.Message{}, false, err
	}
	return m, true, nil
}
