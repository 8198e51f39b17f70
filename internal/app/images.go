package app

import (
	"encoding/base64"
	"path/filepath"
	"strings"

	"solden-marketplace-service/internal/domain/shared"
)

// decodeBase64Image decodes a client-supplied image payload, tolerating an
// optional data-URI prefix ("data:image/png;base64,...").
func decodeBase64Image(payload string) ([]byte, error) {
	if payload == "" {
		return nil, shared.ErrMissingImageData
	}

	if idx := strings.Index(payload, ";base64,"); idx >= 0 {
		payload = payload[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, shared.ErrInvalidBase64
	}

	return data, nil
}

// contentTypeFor maps an uploaded filename to a content type, defaulting to
// PNG for anything unrecognized.
func contentTypeFor(filename string) (contentType, ext string) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", ".jpg"
	case ".gif":
		return "image/gif", ".gif"
	case ".webp":
		return "image/webp", ".webp"
	default:
		return "image/png", ".png"
	}
}
