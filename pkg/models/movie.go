package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Movie keeps id/title/poster typed and carries every other field the
// dashboard sends (year, genre, links...) in Extra, flattened on the wire.
type Movie struct {
	ID        string         `json:"id" validate:"required"`
	Title     string         `json:"title" validate:"required"`
	Poster    string         `json:"poster,omitempty"`
	CreatedAt time.Time      `json:"createdAt,omitempty"`
	Extra     map[string]any `json:"-"`
}

func (m Movie) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+4)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["id"] = m.ID
	out["title"] = m.Title
	if m.Poster != "" {
		out["poster"] = m.Poster
	}
	if !m.CreatedAt.IsZero() {
		out["createdAt"] = m.CreatedAt
	}
	return json.Marshal(out)
}

func (m *Movie) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = Movie{}
	return m.Merge(raw)
}

// Merge overlays fields onto m. Known fields must carry strings; unknown
// fields are kept verbatim. A nil value removes an extra field.
func (m *Movie) Merge(fields map[string]any) error {
	for k, v := range fields {
		switch k {
		case "_id":
			// document-store artefact from older exports
		case "id", "title", "poster":
			s, ok := v.(string)
			if !ok && v != nil {
				return fmt.Errorf("field %q must be a string", k)
			}
			switch k {
			case "id":
				m.ID = s
			case "title":
				m.Title = s
			case "poster":
				m.Poster = s
			}
		case "createdAt":
			s, ok := v.(string)
			if !ok {
				continue
			}
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				m.CreatedAt = t
			}
		default:
			if v == nil {
				delete(m.Extra, k)
				continue
			}
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[k] = v
		}
	}
	return nil
}
