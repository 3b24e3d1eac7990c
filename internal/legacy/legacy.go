// Package legacy reads the data directory of the original JSON-file
// deployment and copies its records into any record store.
package legacy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	json "github.com/goccy/go-json"

	"moviemania/internal/admin"
	"moviemania/internal/apperr"
	"moviemania/internal/auth"
	"moviemania/internal/catalog"
	xglog "moviemania/internal/log"
	"moviemania/internal/store"
	"moviemania/pkg/models"
)

// Dataset holds the legacy records in file order.
type Dataset struct {
	Movies   []models.Movie
	Series   []models.Series
	Admins   []models.Admin
	Sessions []models.Session
}

// Report counts what Import did per collection.
type Report struct {
	Inserted map[store.Collection]int
	Skipped  map[store.Collection]int
	Invalid  map[store.Collection]int
}

func newReport() Report {
	return Report{
		Inserted: map[store.Collection]int{},
		Skipped:  map[store.Collection]int{},
		Invalid:  map[store.Collection]int{},
	}
}

// LoadDir reads movies.json, series.json, admins.json and sessions.json from
// dir. Missing files load as empty collections.
func LoadDir(dir string) (Dataset, error) {
	var ds Dataset
	read := func(name string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}

	data, err := read("movies.json")
	if err != nil {
		return ds, err
	}
	if ds.Movies, err = decodeList[models.Movie](data, "movies.json"); err != nil {
		return ds, err
	}

	if data, err = read("series.json"); err != nil {
		return ds, err
	}
	if ds.Series, err = decodeSeries(data); err != nil {
		return ds, err
	}

	if data, err = read("admins.json"); err != nil {
		return ds, err
	}
	if ds.Admins, err = decodeAdmins(data); err != nil {
		return ds, err
	}

	if data, err = read("sessions.json"); err != nil {
		return ds, err
	}
	if ds.Sessions, err = decodeList[models.Session](data, "sessions.json"); err != nil {
		return ds, err
	}
	return ds, nil
}

func decodeList[T any](data []byte, name string) ([]T, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperr.Wrap(apperr.CorruptData, err, "parse "+name)
	}
	return out, nil
}

// decodeSeries accepts the slug-keyed object, the same object wrapped in a
// one-element array, and a plain array of records as document-store exports
// produce. Records without a slug get one derived from their title.
func decodeSeries(data []byte) ([]models.Series, error) {
	if isRecordArray(data) {
		list, err := decodeList[models.Series](data, "series.json")
		if err != nil {
			return nil, err
		}
		used := map[string]int{}
		for i := range list {
			if list[i].ID == "" {
				list[i].ID = catalog.Slugify(list[i].Title)
			}
			used[list[i].ID]++
			if n := used[list[i].ID]; n > 1 {
				list[i].ID = fmt.Sprintf("%s-%d", list[i].ID, n)
			}
		}
		return list, nil
	}

	docs, err := store.Decode(store.Series, data)
	if err != nil {
		return nil, err
	}
	out := make([]models.Series, 0, len(docs))
	for _, doc := range docs {
		var sr models.Series
		if err := json.Unmarshal(doc.Data, &sr); err != nil {
			return nil, apperr.Wrap(apperr.CorruptData, err, fmt.Sprintf("parse series %q", doc.Key))
		}
		sr.ID = doc.Key
		out = append(out, sr)
	}
	return out, nil
}

// isRecordArray reports whether data is an array whose first element is a
// series record rather than a slug-keyed wrapper.
func isRecordArray(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return false
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil || len(items) == 0 {
		return false
	}
	_, ok := items[0]["title"]
	return ok
}

func decodeAdmins(data []byte) ([]models.Admin, error) {
	docs, err := store.Decode(store.Admins, data)
	if err != nil {
		return nil, err
	}
	out := make([]models.Admin, 0, len(docs))
	for _, doc := range docs {
		var a models.Admin
		if err := json.Unmarshal(doc.Data, &a); err != nil {
			return nil, apperr.Wrap(apperr.CorruptData, err, fmt.Sprintf("parse admin %q", doc.Key))
		}
		a.Username = doc.Key
		out = append(out, a)
	}
	return out, nil
}

// Import inserts every record of ds into st. Existing keys are skipped,
// records missing required fields are counted as invalid. Series get their
// defaults, plaintext passwords are hashed and session tokens are replaced
// by their fingerprint.
func Import(ctx context.Context, st store.Store, ds Dataset, h auth.Hasher) (Report, error) {
	logger := xglog.FromContext(ctx)
	rep := newReport()

	insert := func(c store.Collection, key string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		err = st.Insert(ctx, c, store.Document{Key: key, Data: data})
		switch {
		case errors.Is(err, apperr.ErrConflict):
			rep.Skipped[c]++
			return nil
		case errors.Is(err, apperr.ErrInvalidInput):
			rep.Invalid[c]++
			logger.Warn().Err(err).Str("collection", string(c)).Str("key", key).Msg("skipping invalid record")
			return nil
		case err != nil:
			return fmt.Errorf("import %s %q: %w", c, key, err)
		}
		rep.Inserted[c]++
		return nil
	}

	// Movies are stored newest-first and Insert prepends, so walk backwards
	// to keep the file order.
	for _, m := range slices.Backward(ds.Movies) {
		if m.ID == "" || m.Title == "" {
			rep.Invalid[store.Movies]++
			continue
		}
		if err := insert(store.Movies, m.ID, m); err != nil {
			return rep, err
		}
	}

	for _, sr := range ds.Series {
		if sr.Title == "" || sr.ID == "" {
			rep.Invalid[store.Series]++
			continue
		}
		sr.ApplyDefaults()
		if err := insert(store.Series, sr.ID, sr); err != nil {
			return rep, err
		}
	}

	for _, a := range ds.Admins {
		if a.PasswordHash == "" && a.LegacyPassword != "" {
			hash, err := h.Hash(a.LegacyPassword)
			if err != nil {
				return rep, err
			}
			a.PasswordHash = hash
			a.LegacyPassword = ""
		}
		if a.Username == "" || a.PasswordHash == "" {
			rep.Invalid[store.Admins]++
			continue
		}
		if a.Role == "" {
			a.Role = models.RoleAdmin
		}
		if err := insert(store.Admins, a.Username, a); err != nil {
			return rep, err
		}
	}

	for i, sess := range ds.Sessions {
		if sess.ID == "" {
			sess.ID = fmt.Sprintf("legacy-%d-%d", sess.Timestamp, i)
		}
		if sess.Token != "" && !isFingerprint(sess.Token) {
			sess.Token = admin.Fingerprint(sess.Token)
		}
		if err := insert(store.Sessions, sess.ID, sess); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func isFingerprint(token string) bool {
	return len(token) == len(admin.Fingerprint("")) && token[:2] == "t_"
}
