package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDGenerators(t *testing.T) {
	msgID := NewMessageID()
	assert.True(t, strings.HasPrefix(msgID, "msg_"))
	assert.True(t, strings.HasPrefix(NewUserID(), "user_"))
	assert.True(t, strings.HasPrefix(NewSessionID(), "session_"))

	// timestamp and random suffix, underscore separated
	parts := strings.Split(msgID, "_")
	require.Len(t, parts, 3)
	assert.NotEmpty(t, parts[1])
	assert.NotEmpty(t, parts[2])
}

func TestAttachmentValidate(t *testing.T) {
	valid := Attachment{Name: "a.png", MIMEType: "image/png", Size: 10}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		a    Attachment
	}{
		{"missing name", Attachment{MIMEType: "image/png"}},
		{"missing type", Attachment{Name: "a.png"}},
		{"bare word type", Attachment{Name: "a.png", MIMEType: "png"}},
		{"trailing slash", Attachment{Name: "a.png", MIMEType: "image/"}},
		{"leading slash", Attachment{Name: "a.png", MIMEType: "/png"}},
		{"whitespace", Attachment{Name: "a.png", MIMEType: "image/p ng"}},
		{"negative size", Attachment{Name: "a.png", MIMEType: "image/png", Size: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.a.Validate())
		})
	}
}
