package assets

import (
	"errors"
	"mime"
	"strings"
)

var (
	ErrUnsupportedMediaType = errors.New("only JPEG and PNG images are allowed")
	ErrPayloadTooLarge      = errors.New("file exceeds the 15MB limit")
	ErrMissingFile          = errors.New("no file uploaded")
)

const DefaultMaxBytes int64 = 15 << 20

// Policy decides whether an upload may be persisted.
type Policy struct {
	MaxBytes int64
	Allowed  map[string]string // content type -> default extension
}

func DefaultPolicy() Policy {
	return Policy{
		MaxBytes: DefaultMaxBytes,
		Allowed: map[string]string{
			"image/jpeg": ".jpg",
			"image/png":  ".png",
		},
	}
}

// Check runs before any byte is written. The content type is tested first so
// a wrong type is reported even when the file is also too large.
func (p Policy) Check(contentType string, size int64) error {
	if _, ok := p.Allowed[normalizeType(contentType)]; !ok {
		return ErrUnsupportedMediaType
	}
	if size > p.MaxBytes {
		return ErrPayloadTooLarge
	}
	return nil
}

// extensions lists the file extensions accepted for each image type.
var extensions = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
}

func (p Policy) extensionMatches(contentType, ext string) bool {
	for _, e := range extensions[normalizeType(contentType)] {
		if e == ext {
			return true
		}
	}
	return false
}

func (p Policy) extensionFor(contentType string) string {
	return p.Allowed[normalizeType(contentType)]
}

func normalizeType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}
