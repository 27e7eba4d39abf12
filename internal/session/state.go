package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/etra-web/relay/internal/attachment"
)

// ErrImageRequired is returned when a tool that operates on an image is
// activated with no image attachment queued.
var ErrImageRequired = errors.New("an image attachment is required before activating this tool")

// State holds the mutable session state the browser script kept in globals:
// the pending attachment queue, the active tool, and a captured recording.
// It is an explicit object owned by the Client and handed to whoever needs
// it, never ambient.
type State struct {
	mu          sync.Mutex
	encoder     *attachment.Encoder
	attachments []attachment.RawFile
	activeTool  string
	recording   *attachment.RawFile
}

// NewState creates session state using the encoder's limits for admission.
func NewState(enc *attachment.Encoder) *State {
	return &State{encoder: enc}
}

// AddAttachments validates and queues a batch. Validation is all-or-nothing:
// if any file is oversized or of a disallowed type, the whole batch is
// rejected and the queue is left exactly as it was.
func (s *State) AddAttachments(files ...attachment.RawFile) error {
	if err := s.encoder.ValidateBatch(files); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments = append(s.attachments, files...)
	return nil
}

// RemoveAttachment drops the queued file at index i; out-of-range indexes
// are ignored.
func (s *State) RemoveAttachment(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.attachments) {
		return
	}
	s.attachments = append(s.attachments[:i], s.attachments[i+1:]...)
}

// Attachments returns a copy of the pending queue.
func (s *State) Attachments() []attachment.RawFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]attachment.RawFile(nil), s.attachments...)
}

// DrainAttachments snapshots the queue and then clears it, atomically. The
// snapshot is taken before the clear, so the caller always transmits exactly
// what was queued even though the visible queue empties immediately.
func (s *State) DrainAttachments() []attachment.RawFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := append([]attachment.RawFile(nil), s.attachments...)
	s.attachments = nil
	return snapshot
}

// AttachmentCount reports the number of queued files.
func (s *State) AttachmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attachments)
}

// HasImageAttachment reports whether any queued file is an image.
func (s *State) HasImageAttachment() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasImageLocked()
}

func (s *State) hasImageLocked() bool {
	for _, f := range s.attachments {
		if strings.HasPrefix(f.MIMEType, "image/") {
			return true
		}
	}
	return false
}

// ActivateTool selects a command mode for the next send. At most one tool is
// active at a time; selecting another replaces it. Tools that operate on an
// image refuse to activate until one is queued.
func (s *State) ActivateTool(tool string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tool == ToolEditImage && !s.hasImageLocked() {
		return ErrImageRequired
	}
	s.activeTool = tool
	return nil
}

// DeactivateTool clears the active tool.
func (s *State) DeactivateTool() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeTool = ""
}

// ActiveTool returns the currently selected tool, or "".
func (s *State) ActiveTool() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTool
}

// SetRecording stores a finished audio capture. It replaces any previous one.
func (s *State) SetRecording(f attachment.RawFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = &f
}

// TakeRecording removes and returns the stored capture, if any.
func (s *State) TakeRecording() *attachment.RawFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.recording
	s.recording = nil
	return rec
}
