package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etra-web/relay/internal/attachment"
	"github.com/etra-web/relay/internal/codec"
	"github.com/etra-web/relay/internal/config"
)

// webhookRecorder captures envelopes POSTed to a fake workflow webhook.
type webhookRecorder struct {
	mu        sync.Mutex
	envelopes []codec.Envelope
	status    int
}

func (w *webhookRecorder) handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var env codec.Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		w.mu.Lock()
		w.envelopes = append(w.envelopes, env)
		status := w.status
		w.mu.Unlock()
		if status == 0 {
			status = http.StatusOK
		}
		rw.WriteHeader(status)
	}
}

func (w *webhookRecorder) last(t *testing.T) codec.Envelope {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()
	require.NotEmpty(t, w.envelopes)
	return w.envelopes[len(w.envelopes)-1]
}

func (w *webhookRecorder) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.envelopes)
}

func newTestClient(t *testing.T, rec *webhookRecorder) *Client {
	t.Helper()
	srv := httptest.NewServer(rec.handler())
	t.Cleanup(srv.Close)

	return NewClient(&config.Config{
		WebhookURL:           srv.URL,
		MaxAttachmentBytes:   1024,
		AllowedImageTypes:    []string{"image/png"},
		AllowedAudioTypes:    []string{"audio/webm"},
		AllowedDocumentTypes: []string{"text/plain"},
	}, "ws://unused/ws")
}

func TestSendPlainText(t *testing.T) {
	rec := &webhookRecorder{}
	client := newTestClient(t, rec)

	var statuses []Status
	client.OnStatus = func(id string, s Status) { statuses = append(statuses, s) }
	typing := false
	client.OnTyping = func(active bool) { typing = active }

	id, err := client.Send(context.Background(), "  hello there  ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "msg_"))

	env := rec.last(t)
	assert.Equal(t, "text", env.MessageType)
	assert.Equal(t, "hello there", env.Content)
	assert.Equal(t, "user", env.Sender)
	assert.Equal(t, client.UserID, env.UserID)
	assert.Equal(t, client.SessionID, env.Metadata["sessionId"])

	assert.Equal(t, []Status{StatusSending, StatusSent}, statuses)
	assert.True(t, typing, "a successful send should raise the typing indicator")
}

func TestSendEmptyIsRejected(t *testing.T) {
	rec := &webhookRecorder{}
	client := newTestClient(t, rec)

	_, err := client.Send(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, 0, rec.count())
}

func TestSendCommandFlattensToText(t *testing.T) {
	rec := &webhookRecorder{}
	client := newTestClient(t, rec)
	require.NoError(t, client.State.ActivateTool(ToolGenerateImage))

	_, err := client.Send(context.Background(), "a red fox")
	require.NoError(t, err)

	env := rec.last(t)
	assert.Equal(t, "text", env.MessageType)
	assert.Equal(t, ToolGenerateImage, env.Metadata["commandId"])
	assert.Equal(t, "Generate Image", env.Metadata["toolCommand"])

	// A delivered command disarms the tool.
	assert.Empty(t, client.State.ActiveTool())
}

func TestFailedSendKeepsToolArmed(t *testing.T) {
	rec := &webhookRecorder{status: http.StatusBadGateway}
	client := newTestClient(t, rec)
	require.NoError(t, client.State.ActivateTool(ToolGenerateAudio))

	var statuses []Status
	client.OnStatus = func(id string, s Status) { statuses = append(statuses, s) }

	_, err := client.Send(context.Background(), "say something")
	require.Error(t, err)

	assert.Equal(t, []Status{StatusSending, StatusError}, statuses)
	assert.Equal(t, ToolGenerateAudio, client.State.ActiveTool())
}

func TestSendMixedContent(t *testing.T) {
	rec := &webhookRecorder{}
	client := newTestClient(t, rec)
	require.NoError(t, client.State.AddAttachments(
		attachment.RawFile{Name: "a.png", MIMEType: "image/png", Data: []byte("img-a")},
		attachment.RawFile{Name: "b.txt", MIMEType: "text/plain", Data: []byte("note")},
	))

	_, err := client.Send(context.Background(), "look at these")
	require.NoError(t, err)

	// The queue was snapshotted and cleared by the send.
	assert.Equal(t, 0, client.State.AttachmentCount())

	env := rec.last(t)
	assert.Equal(t, "mixed", env.MessageType)
	require.Len(t, env.Files, 2)
	assert.Equal(t, "a.png", env.Files[0].Name)
	assert.True(t, strings.HasPrefix(env.Files[0].Data, "data:image/png;base64,"))

	assert.Equal(t, float64(2), env.Metadata["fileCount"])
	assert.Equal(t, true, env.Metadata["hasText"])
	assert.Equal(t, true, env.Metadata["hasImageAttachment"])
	assert.Equal(t, float64(len("img-a")+len("note")), env.Metadata["totalSize"])
}

func TestSendRecordingAloneIsAudio(t *testing.T) {
	rec := &webhookRecorder{}
	client := newTestClient(t, rec)
	client.State.SetRecording(attachment.RawFile{Name: "voice.webm", MIMEType: "audio/webm", Data: []byte("opus")})

	_, err := client.Send(context.Background(), "")
	require.NoError(t, err)

	env := rec.last(t)
	assert.Equal(t, "audio", env.MessageType)
	assert.Equal(t, true, env.Metadata["isAudioMessage"])
	require.Len(t, env.Files, 1)
	assert.Equal(t, "voice.webm", env.Files[0].Name)
}

func TestSendRecordingWithTextIsMixed(t *testing.T) {
	rec := &webhookRecorder{}
	client := newTestClient(t, rec)
	client.State.SetRecording(attachment.RawFile{Name: "voice.webm", MIMEType: "audio/webm", Data: []byte("opus")})

	_, err := client.Send(context.Background(), "transcribe this")
	require.NoError(t, err)

	env := rec.last(t)
	assert.Equal(t, "mixed", env.MessageType)
	assert.Equal(t, false, env.Metadata["isAudioMessage"])
}

func TestOversizedQueueNeverReachesWire(t *testing.T) {
	rec := &webhookRecorder{}
	client := newTestClient(t, rec)

	err := client.State.AddAttachments(attachment.RawFile{
		Name: "huge.png", MIMEType: "image/png", Data: make([]byte, 2048),
	})
	require.ErrorIs(t, err, attachment.ErrTooLarge)

	_, err = client.Send(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, 0, rec.count())
}
