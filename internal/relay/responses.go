package relay

import "time"

// ErrorResponse is the standard format for API error responses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AckResponse acknowledges an accepted callback with the resolved message id.
type AckResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"messageId"`
}

// HealthResponse reports liveness and the current connected-client count.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Clients   int       `json:"clients"`
}
