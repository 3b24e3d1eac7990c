// Package backup exports collections in their on-disk format, one at a time
// or bundled into a zip archive.
package backup

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"

	"moviemania/internal/apperr"
	"moviemania/internal/store"
)

// Notifications names the notification log export.
const Notifications = "notifications"

// RawLog exposes the notification log bytes.
type RawLog interface {
	Raw() ([]byte, error)
}

type Exporter struct {
	store store.Store
	log   RawLog
	now   func() time.Time
}

func NewExporter(s store.Store, log RawLog) *Exporter {
	return &Exporter{store: s, log: log, now: time.Now}
}

// Types lists every exportable type in archive order.
func Types() []string {
	out := make([]string, 0, len(store.Collections)+1)
	for _, c := range store.Collections {
		out = append(out, string(c))
	}
	return append(out, Notifications)
}

// Filename is the download name of an export.
func Filename(kind string) string {
	if kind == Notifications {
		return "notifications.log"
	}
	return kind + ".json"
}

// Export renders one collection as the file store would write it, or the
// raw notification log.
func (e *Exporter) Export(ctx context.Context, kind string) ([]byte, error) {
	if kind == Notifications {
		return e.log.Raw()
	}
	c := store.Collection(kind)
	if _, err := store.LayoutOf(c); err != nil {
		return nil, apperr.New(apperr.InvalidInput, fmt.Sprintf("unknown backup type %q", kind))
	}
	docs, err := e.store.List(ctx, c)
	if err != nil {
		return nil, err
	}
	data, err := store.Encode(c, docs)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteZip writes every export into one archive.
func (e *Exporter) WriteZip(ctx context.Context, w io.Writer) error {
	zw := zip.NewWriter(w)
	modified := e.now()
	for _, kind := range Types() {
		data, err := e.Export(ctx, kind)
		if err != nil {
			zw.Close()
			return fmt.Errorf("export %s: %w", kind, err)
		}
		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     Filename(kind),
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			zw.Close()
			return err
		}
		if _, err := f.Write(data); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}
