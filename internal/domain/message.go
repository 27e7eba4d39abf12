package domain

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Kind classifies a message. The external backend only understands a subset
// of these on the wire (see codec); Kind is the internal, closed union.
type Kind string

const (
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindFile    Kind = "file"
	KindAudio   Kind = "audio"
	KindCommand Kind = "command"
	KindMixed   Kind = "mixed"
)

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Attachment is one file carried by a message. Data holds the base64
// payload, usually prefixed with a data-URI header.
type Attachment struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	MIMEType string `json:"type" validate:"required,mediatype"`
	Size     int64  `json:"size" validate:"gte=0"`
	Data     string `json:"data,omitempty"`
}

// Message is the unit of communication in both directions. Timestamps stay
// ISO-8601 strings end to end; the relay never reinterprets the clock of
// whichever side stamped the message.
type Message struct {
	ID                string         `json:"id"`
	Timestamp         string         `json:"timestamp"`
	Kind              Kind           `json:"type"`
	Content           string         `json:"content"`
	Sender            Sender         `json:"sender"`
	UserID            string         `json:"userId"`
	SessionID         string         `json:"sessionId,omitempty"`
	Attachments       []Attachment   `json:"files,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	OriginalMessageID string         `json:"originalMessageId,omitempty"`
}

// validatorInstance is a package-level validator instance.
// Using a single instance is more efficient as it caches struct information.
var validatorInstance = validator.New()

func init() {
	// mediatype checks the basic "type/subtype" shape. Category allow-lists
	// are configurable and enforced at the attachment layer.
	_ = validatorInstance.RegisterValidation("mediatype", validateMediaType)
}

func validateMediaType(fl validator.FieldLevel) bool {
	mt := fl.Field().String()
	slash := strings.Index(mt, "/")
	return slash > 0 && slash < len(mt)-1 && !strings.ContainsAny(mt, " \t")
}

// Validate runs structural validation on the attachment.
func (a *Attachment) Validate() error {
	return validatorInstance.Struct(a)
}

// NewMessageID generates a client-side message id. The timestamp+random
// scheme is unique per sending session with overwhelming probability; it is
// not a global uniqueness guarantee.
func NewMessageID() string {
	return "msg_" + idSuffix()
}

// NewUserID generates the stable per-browser identifier created on first use.
func NewUserID() string {
	return "user_" + idSuffix()
}

// NewSessionID generates the per-session identifier.
func NewSessionID() string {
	return "session_" + idSuffix()
}

func idSuffix() string {
	return fmt.Sprintf("%d_%s",
		time.Now().UnixMilli(),
		strconv.FormatUint(rand.Uint64()%(1<<47), 36))
}
