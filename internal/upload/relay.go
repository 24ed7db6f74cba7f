// Package upload validates user files and forwards them to the media host.
package upload

import (
	"context"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"wapistore/internal/apperr"
)

// AllowedTypes are the sniffed MIME types accepted for payment proofs and item images.
var AllowedTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif", "application/pdf"}

type File struct {
	Name string
	Data []byte
}

type Result struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Bytes    int64  `json:"bytes,omitempty"`
	Format   string `json:"format,omitempty"`
}

// Relay hands a validated file to an external host and returns where it lives.
type Relay interface {
	Upload(ctx context.Context, f File) (Result, error)
}

// Check enforces the size cap and sniffs the content type from the bytes,
// ignoring whatever the client claimed.
func Check(f File, maxBytes int64) (string, error) {
	if len(f.Data) == 0 {
		return "", apperr.Validation("file is required")
	}
	if maxBytes > 0 && int64(len(f.Data)) > maxBytes {
		return "", apperr.Validation("file exceeds %d bytes", maxBytes).
			WithDetails(map[string]any{"maxBytes": maxBytes, "size": len(f.Data)})
	}
	detected := mimetype.Detect(f.Data)
	mediaType := strings.ToLower(strings.SplitN(detected.String(), ";", 2)[0])
	if !slices.Contains(AllowedTypes, mediaType) {
		return "", apperr.Validation("file type %s is not allowed", mediaType).
			WithDetails(map[string]any{"allowed": AllowedTypes})
	}
	return mediaType, nil
}

// Disabled is used when no media host is configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, File) (Result, error) {
	return Result{}, apperr.New(apperr.KindUnavailable, "uploads are not configured")
}
