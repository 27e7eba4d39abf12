package cmd

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/etra-web/relay/internal/attachment"
)

// loadAttachment reads a local file into a RawFile, resolving the MIME type
// from the extension first and sniffing the content when that fails.
func loadAttachment(path string) (attachment.RawFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return attachment.RawFile{}, err
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	return attachment.RawFile{
		Name:     filepath.Base(path),
		MIMEType: mimeType,
		Data:     data,
	}, nil
}
