package attachment

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etra-web/relay/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		MaxAttachmentBytes:   config.DefaultMaxAttachmentBytes,
		AllowedImageTypes:    []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		AllowedAudioTypes:    []string{"audio/mpeg", "audio/wav", "audio/ogg"},
		AllowedDocumentTypes: []string{"application/pdf", "text/plain"},
	}
}

func TestEncodeDataURI(t *testing.T) {
	data := []byte("hello")
	got := EncodeDataURI("image/png", data)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(data), got)
}

func TestEncodeBatchPreservesOrder(t *testing.T) {
	enc := NewEncoder(testConfig())

	files := make([]RawFile, 8)
	for i := range files {
		files[i] = RawFile{
			Name:     fmt.Sprintf("file-%d.png", i),
			MIMEType: "image/png",
			Data:     bytes.Repeat([]byte{byte(i)}, (i+1)*1024),
		}
	}

	encoded, err := enc.EncodeBatch(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, encoded, len(files))

	for i, a := range encoded {
		assert.Equal(t, files[i].Name, a.Name, "result %d out of order", i)
		assert.Equal(t, int64(len(files[i].Data)), a.Size)
		assert.Equal(t, EncodeDataURI("image/png", files[i].Data), a.Data)
	}
}

func TestEncodeBatchRejectsOversizedFile(t *testing.T) {
	enc := NewEncoder(testConfig())

	files := []RawFile{
		{Name: "ok.png", MIMEType: "image/png", Data: []byte("small")},
		{Name: "huge.png", MIMEType: "image/png", Data: make([]byte, config.DefaultMaxAttachmentBytes+1)},
	}

	encoded, err := enc.EncodeBatch(context.Background(), files)
	require.ErrorIs(t, err, ErrTooLarge)
	// One bad file fails the whole batch; no partial output.
	assert.Nil(t, encoded)
}

func TestEncodeBatchRejectsUnsupportedType(t *testing.T) {
	enc := NewEncoder(testConfig())

	files := []RawFile{
		{Name: "ok.pdf", MIMEType: "application/pdf", Data: []byte("pdf")},
		{Name: "payload.exe", MIMEType: "application/x-msdownload", Data: []byte("nope")},
	}

	_, err := enc.EncodeBatch(context.Background(), files)
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestFileAtLimitPasses(t *testing.T) {
	enc := NewEncoder(&config.Config{
		MaxAttachmentBytes: 64,
		AllowedImageTypes:  []string{"image/png"},
	})

	err := enc.ValidateBatch([]RawFile{{Name: "exact.png", MIMEType: "image/png", Data: make([]byte, 64)}})
	assert.NoError(t, err)
}

func TestAllowedSpansAllCategories(t *testing.T) {
	enc := NewEncoder(testConfig())

	assert.True(t, enc.Allowed("image/webp"))
	assert.True(t, enc.Allowed("audio/ogg"))
	assert.True(t, enc.Allowed("text/plain"))
	assert.False(t, enc.Allowed("video/mp4"))
}
