// Package assets uploads operator attachments to a host that serves them
// back over a public URL the provider can fetch.
package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"whatsapp-console/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrInvalidData   = errors.New("invalid base64 file data")
	ErrAssetNotFound = errors.New("asset not found")
)

// File is a decoded attachment ready for upload.
type File struct {
	Name     string
	MimeType string
	Kind     models.Kind
	Data     []byte
}

// Asset is what the host returns after a successful upload.
type Asset struct {
	PublicID string
	URL      string
	Bytes    int64
	Format   string
}

type Host interface {
	Upload(ctx context.Context, file File) (*Asset, error)
	Delete(ctx context.Context, publicID string) error
}

// DecodeBase64 accepts raw base64 or a data URL (data:<mime>;base64,<data>)
// and returns the bytes with the declared or sniffed mime type.
func DecodeBase64(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", fmt.Errorf("%w: empty", ErrInvalidData)
	}

	declared := ""
	if strings.HasPrefix(s, "data:") {
		header, payload, ok := strings.Cut(s, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("%w: malformed data URL", ErrInvalidData)
		}
		declared = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		s = payload
	}
	s = strings.Join(strings.Fields(s), "")

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
	}

	if declared != "" {
		return data, declared, nil
	}
	return data, mimetype.Detect(data).String(), nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// publicID strips the extension and anything a CDN path would choke on.
func publicID(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "_")
	if base == "" || base == "." {
		return uuid.NewString()
	}
	return base
}
