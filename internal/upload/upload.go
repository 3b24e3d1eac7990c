// Package upload stores poster images in the public image directory.
package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"moviemania/internal/apperr"
	xglog "moviemania/internal/log"
)

// PublicPrefix is the URL path the image directory is served under.
const PublicPrefix = "/images/"

var allowed = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

type Posters struct {
	dir      string
	maxBytes int64
}

func NewPosters(dir string, maxBytes int64) (*Posters, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &Posters{dir: dir, maxBytes: maxBytes}, nil
}

func (p *Posters) Dir() string { return p.dir }

// Save stores the image read from r under a fresh name and returns its
// public path. The extension of filename must match the detected content.
func (p *Posters) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	want, ok := allowed[ext]
	if !ok {
		return "", apperr.New(apperr.InvalidInput, fmt.Sprintf("unsupported image type %q", ext))
	}

	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", apperr.New(apperr.InvalidInput, "uploaded file is empty")
	}
	if int64(len(data)) > p.maxBytes {
		return "", apperr.New(apperr.InvalidInput, fmt.Sprintf("image exceeds %d bytes", p.maxBytes))
	}
	if got := mimetype.Detect(data); !got.Is(want) {
		return "", apperr.New(apperr.InvalidInput, fmt.Sprintf("file content is %s, not %s", got.String(), want))
	}

	name := uuid.NewString() + ext
	if err := renameio.WriteFile(filepath.Join(p.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	xglog.FromContext(ctx).Info().Str("file", name).Int("bytes", len(data)).Msg("poster stored")
	return PublicPrefix + name, nil
}
