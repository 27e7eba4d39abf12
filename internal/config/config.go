package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Default limits and allow-lists. These mirror the values the external n8n
// workflow was built against; all of them can be overridden via environment
// variables.
const (
	DefaultAddr               = ":3002"
	DefaultMaxAttachmentBytes = 10 * 1024 * 1024 // 10MB
)

var (
	defaultImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	defaultAudioTypes = []string{"audio/mpeg", "audio/wav", "audio/ogg"}
	defaultDocTypes   = []string{
		"application/pdf",
		"text/plain",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
)

// Config holds all configuration for the relay and the session client.
type Config struct {
	// Addr is the listen address of the relay HTTP/WebSocket server.
	Addr string

	// WebhookURL is the external backend endpoint that receives
	// user-originated messages. Only the session client and the history
	// pager consume it; the relay server runs without one.
	WebhookURL string

	// HistoryWebhookURL is the endpoint serving the paginated history
	// protocol. Defaults to WebhookURL when unset, which matches how the
	// external workflow multiplexes both on one entry point.
	HistoryWebhookURL string

	// MaxAttachmentBytes is the per-file size cap enforced before encoding.
	MaxAttachmentBytes int64

	// Allow-lists per attachment category. A file whose MIME type appears in
	// none of the three lists is rejected.
	AllowedImageTypes    []string
	AllowedAudioTypes    []string
	AllowedDocumentTypes []string
}

// New loads configuration from environment variables.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		Addr:                 envOr("RELAY_ADDR", DefaultAddr),
		WebhookURL:           os.Getenv("N8N_WEBHOOK_URL"),
		HistoryWebhookURL:    os.Getenv("HISTORY_WEBHOOK_URL"),
		MaxAttachmentBytes:   envInt64("MAX_ATTACHMENT_BYTES", DefaultMaxAttachmentBytes),
		AllowedImageTypes:    envList("ALLOWED_IMAGE_TYPES", defaultImageTypes),
		AllowedAudioTypes:    envList("ALLOWED_AUDIO_TYPES", defaultAudioTypes),
		AllowedDocumentTypes: envList("ALLOWED_DOCUMENT_TYPES", defaultDocTypes),
	}

	if cfg.HistoryWebhookURL == "" {
		cfg.HistoryWebhookURL = cfg.WebhookURL
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		log.Fatalf("Invalid value for %s: %q", key, v)
	}
	return n
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
