package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/etra-web/relay/internal/attachment"
	"github.com/etra-web/relay/internal/domain"
)

// PlaceholderContent is used when an inbound payload carries neither a
// response nor a content field.
const PlaceholderContent = "No response content"

// maxMultipartMemory bounds the in-memory portion of multipart parsing;
// larger file parts spill to temp files.
const maxMultipartMemory = 32 << 20

// inboundPayload is the tolerant shape accepted from the external backend.
// Every field is optional; normalization fills safe defaults.
type inboundPayload struct {
	MessageID         string              `json:"messageId"`
	ID                string              `json:"id"`
	Timestamp         string              `json:"timestamp"`
	MessageType       string              `json:"messageType"`
	Type              string              `json:"type"`
	Content           string              `json:"content"`
	Response          string              `json:"response"`
	Sender            string              `json:"sender"`
	UserID            string              `json:"userId"`
	SessionID         string              `json:"sessionId"`
	Metadata          map[string]any      `json:"metadata"`
	OriginalMessageID string              `json:"originalMessageId"`
	Files             []domain.Attachment `json:"files"`
}

// NormalizeInbound turns a raw JSON callback body into a Message.
//
// Defaults: a missing id is generated, a missing timestamp becomes the
// receipt time, content falls back response -> content -> placeholder, and
// the sender defaults to bot. Only an unparseable body is an error; the
// caller maps that to a server-error response.
func NormalizeInbound(body []byte, now time.Time) (domain.Message, error) {
	var p inboundPayload
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return domain.Message{}, fmt.Errorf("parse inbound payload: %w", err)
		}
	}
	return p.toMessage(now), nil
}

func (p inboundPayload) toMessage(now time.Time) domain.Message {
	id := p.MessageID
	if id == "" {
		id = p.ID
	}
	if id == "" {
		id = uuid.NewString()
	}

	ts := p.Timestamp
	if ts == "" {
		ts = now.UTC().Format(time.RFC3339)
	}

	content := p.Response
	if content == "" {
		content = p.Content
	}
	if content == "" {
		content = PlaceholderContent
	}

	sender := domain.Sender(p.Sender)
	if sender == "" {
		sender = domain.SenderBot
	}

	kind := domain.Kind(p.MessageType)
	if kind == "" {
		kind = domain.Kind(p.Type)
	}
	if kind == "" {
		kind = domain.KindText
	}

	return domain.Message{
		ID:                id,
		Timestamp:         ts,
		Kind:              kind,
		Content:           content,
		Sender:            sender,
		UserID:            p.UserID,
		SessionID:         p.SessionID,
		Attachments:       p.Files,
		Metadata:          p.Metadata,
		OriginalMessageID: p.OriginalMessageID,
	}
}

// NormalizeMultipart handles the multipart/form-data ingestion variant:
// message fields arrive as form values and attachments as file parts, which
// are read fully and re-encoded as base64 data URIs.
func NormalizeMultipart(r *http.Request, now time.Time) (domain.Message, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return domain.Message{}, fmt.Errorf("parse multipart payload: %w", err)
	}

	p := payloadFromForm(r)

	if r.MultipartForm != nil {
		for _, headers := range r.MultipartForm.File {
			for _, fh := range headers {
				f, err := fh.Open()
				if err != nil {
					return domain.Message{}, fmt.Errorf("open file part %q: %w", fh.Filename, err)
				}
				data, err := io.ReadAll(f)
				f.Close()
				if err != nil {
					return domain.Message{}, fmt.Errorf("read file part %q: %w", fh.Filename, err)
				}

				mimeType := fh.Header.Get("Content-Type")
				if mimeType == "" {
					mimeType = http.DetectContentType(data)
				}
				p.Files = append(p.Files, domain.Attachment{
					Name:     fh.Filename,
					MIMEType: mimeType,
					Size:     int64(len(data)),
					Data:     attachment.EncodeDataURI(mimeType, data),
				})
			}
		}
	}

	return p.toMessage(now), nil
}

// NormalizeForm handles the raw form-field ingestion variant: message fields
// as urlencoded values, with an optional single attachment passed as
// fileName/fileType/fileData fields where fileData is already base64.
func NormalizeForm(r *http.Request, now time.Time) (domain.Message, error) {
	if err := r.ParseForm(); err != nil {
		return domain.Message{}, fmt.Errorf("parse form payload: %w", err)
	}

	p := payloadFromForm(r)

	if data := r.FormValue("fileData"); data != "" {
		p.Files = append(p.Files, domain.Attachment{
			Name:     r.FormValue("fileName"),
			MIMEType: r.FormValue("fileType"),
			Size:     int64(len(data)),
			Data:     data,
		})
	}

	return p.toMessage(now), nil
}

func payloadFromForm(r *http.Request) inboundPayload {
	p := inboundPayload{
		MessageID:         r.FormValue("messageId"),
		ID:                r.FormValue("id"),
		Timestamp:         r.FormValue("timestamp"),
		MessageType:       r.FormValue("messageType"),
		Type:              r.FormValue("type"),
		Content:           r.FormValue("content"),
		Response:          r.FormValue("response"),
		Sender:            r.FormValue("sender"),
		UserID:            r.FormValue("userId"),
		SessionID:         r.FormValue("sessionId"),
		OriginalMessageID: r.FormValue("originalMessageId"),
	}

	if raw := r.FormValue("metadata"); raw != "" {
		// Metadata is best-effort on the form variants; a malformed blob is
		// dropped rather than failing the whole payload.
		var meta map[string]any
		if err := json.Unmarshal([]byte(raw), &meta); err == nil {
			p.Metadata = meta
		}
	}

	return p
}
