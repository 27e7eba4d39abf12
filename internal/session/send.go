package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/etra-web/relay/internal/attachment"
	"github.com/etra-web/relay/internal/codec"
	"github.com/etra-web/relay/internal/domain"
)

// Send dispatches the composed message: the trimmed text plus whatever the
// session has queued. Exactly one envelope goes out per call, chosen by
// priority: an active tool makes it a command, otherwise queued attachments
// make it mixed content, otherwise it is plain text. A pending audio
// recording is folded into the attachment queue first.
//
// The queue is snapshotted and cleared before the POST, so the files that
// were visible when the user hit send are exactly the files transmitted. The
// active tool is only cleared after a successful send; a failed command send
// leaves the tool armed for retry.
func (c *Client) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)

	audioOnly := false
	if rec := c.State.TakeRecording(); rec != nil {
		audioOnly = text == ""
		if err := c.State.AddAttachments(*rec); err != nil {
			return "", fmt.Errorf("queue recording: %w", err)
		}
	}

	hasImage := c.State.HasImageAttachment()
	files := c.State.DrainAttachments()
	tool := c.State.ActiveTool()

	if text == "" && len(files) == 0 {
		return "", ErrEmptyMessage
	}

	msg := domain.Message{
		ID:        domain.NewMessageID(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Content:   text,
		Sender:    domain.SenderUser,
		UserID:    c.UserID,
		SessionID: c.SessionID,
	}

	switch {
	case tool != "":
		msg.Kind = domain.KindCommand
	case audioOnly && len(files) == 1:
		msg.Kind = domain.KindAudio
	case len(files) > 0:
		msg.Kind = domain.KindMixed
	default:
		msg.Kind = domain.KindText
	}

	if len(files) > 0 {
		encoded, err := c.encoder.EncodeBatch(ctx, files)
		if err != nil {
			return "", fmt.Errorf("encode attachments: %w", err)
		}
		msg.Attachments = encoded
	}

	msg.Metadata = c.metadata(tool, files, hasImage, audioOnly, text)

	c.status(msg.ID, StatusSending)

	if err := c.postWebhook(ctx, codec.Encode(msg)); err != nil {
		c.status(msg.ID, StatusError)
		return msg.ID, err
	}

	c.status(msg.ID, StatusSent)
	if tool != "" {
		c.State.DeactivateTool()
	}
	c.typing(true)
	return msg.ID, nil
}

// metadata assembles the context block the workflow routes on.
func (c *Client) metadata(tool string, files []attachment.RawFile, hasImage, audioOnly bool, text string) map[string]any {
	zone, _ := time.Now().Zone()
	meta := map[string]any{
		"sessionId":          c.SessionID,
		"userAgent":          c.UserAgent,
		"timezone":           zone,
		"hasImageAttachment": hasImage,
		"attachmentCount":    len(files),
		"isAudioMessage":     audioOnly,
	}
	if c.Platform != "" {
		meta["platform"] = c.Platform
	}
	if c.Language != "" {
		meta["language"] = c.Language
	}
	if tool != "" {
		meta["commandId"] = tool
		meta["activeTool"] = tool
		meta["toolCommand"] = ToolDisplayName(tool)
	}
	if len(files) > 0 {
		var total int64
		descriptors := make([]map[string]any, 0, len(files))
		for _, f := range files {
			total += int64(len(f.Data))
			descriptors = append(descriptors, map[string]any{
				"name": f.Name,
				"type": f.MIMEType,
				"size": len(f.Data),
			})
		}
		meta["attachments"] = descriptors
		meta["fileCount"] = len(files)
		meta["totalSize"] = total
		meta["hasText"] = text != ""
	}
	return meta
}

func (c *Client) postWebhook(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Webhook POST failed", "url", c.WebhookURL, "error", err)
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
