// Package attachment converts raw file input into the transportable base64
// representation and enforces the configured size and type limits.
package attachment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/etra-web/relay/internal/config"
	"github.com/etra-web/relay/internal/domain"
)

var (
	// ErrTooLarge is returned when any file in a batch exceeds the size cap.
	ErrTooLarge = errors.New("attachment exceeds maximum size")
	// ErrUnsupportedType is returned when any file's MIME type is outside
	// all three allow-lists.
	ErrUnsupportedType = errors.New("attachment type not supported")
)

// RawFile is an attachment before encoding: the bytes plus the declared type.
type RawFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

// EncodeDataURI renders content as a data URI the way browsers produce them
// with FileReader.readAsDataURL.
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Encoder validates and encodes attachment batches. Validation is
// all-or-nothing: one bad file rejects the whole batch before any network
// or encoding work happens.
type Encoder struct {
	maxBytes int64
	image    []string
	audio    []string
	document []string
}

// NewEncoder builds an Encoder from the configured limits.
func NewEncoder(cfg *config.Config) *Encoder {
	return &Encoder{
		maxBytes: cfg.MaxAttachmentBytes,
		image:    cfg.AllowedImageTypes,
		audio:    cfg.AllowedAudioTypes,
		document: cfg.AllowedDocumentTypes,
	}
}

// MaxBytes reports the configured per-file size cap.
func (e *Encoder) MaxBytes() int64 {
	return e.maxBytes
}

// Allowed reports whether a MIME type belongs to one of the three
// allow-listed categories.
func (e *Encoder) Allowed(mimeType string) bool {
	return slices.Contains(e.image, mimeType) ||
		slices.Contains(e.audio, mimeType) ||
		slices.Contains(e.document, mimeType)
}

// ValidateBatch checks every file of a batch against the size cap and the
// allow-lists. The first violation fails the entire batch.
func (e *Encoder) ValidateBatch(files []RawFile) error {
	for _, f := range files {
		if int64(len(f.Data)) > e.maxBytes {
			return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, f.Name, len(f.Data), e.maxBytes)
		}
		if !e.Allowed(f.MIMEType) {
			return fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, f.Name, f.MIMEType)
		}
	}
	return nil
}

// EncodeBatch validates a batch and encodes every file concurrently, then
// joins before returning. Results keep the input order regardless of
// per-file completion timing, and a failed file fails the whole batch; no
// partial result is ever returned.
func (e *Encoder) EncodeBatch(ctx context.Context, files []RawFile) ([]domain.Attachment, error) {
	if err := e.ValidateBatch(files); err != nil {
		return nil, err
	}

	encoded := make([]domain.Attachment, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a := domain.Attachment{
				Name:     f.Name,
				MIMEType: f.MIMEType,
				Size:     int64(len(f.Data)),
				Data:     EncodeDataURI(f.MIMEType, f.Data),
			}
			if err := a.Validate(); err != nil {
				return fmt.Errorf("attachment %q: %w", f.Name, err)
			}
			encoded[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return encoded, nil
}
