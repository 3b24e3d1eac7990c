package models

import (
	"encoding/json"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovieKeepsExtraFields(t *testing.T) {
	in := `{"id":"m1","title":"Dune","poster":"/images/dune.jpg","year":"2021","links":{"720p":"x"}}`

	var m Movie
	require.NoError(t, json.Unmarshal([]byte(in), &m))
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "Dune", m.Title)
	assert.Equal(t, "2021", m.Extra["year"])

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestMovieMerge(t *testing.T) {
	m := Movie{ID: "m1", Title: "Dune", Extra: map[string]any{"year": "2021", "genre": "sci-fi"}}

	require.NoError(t, m.Merge(map[string]any{"title": "Dune: Part One", "genre": nil, "rating": 8.1}))

	assert.Equal(t, "Dune: Part One", m.Title)
	assert.Equal(t, "2021", m.Extra["year"])
	assert.NotContains(t, m.Extra, "genre")
	assert.Equal(t, 8.1, m.Extra["rating"])

	assert.Error(t, m.Merge(map[string]any{"title": 42}))
}

func TestSeriesDefaults(t *testing.T) {
	s := Series{ID: "dark", Title: "Dark"}
	s.ApplyDefaults()

	assert.JSONEq(t, `{}`, string(s.Episodes))
	assert.Equal(t, "unknown", s.AddedBy)
	assert.Equal(t, "", s.Description)
}

func TestSeriesWithoutCreatedAtOmitsField(t *testing.T) {
	sr := Series{ID: "s1", Title: "S"}
	sr.ApplyDefaults()

	out, err := gojson.Marshal(sr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"s1","title":"S","description":"","episodes":{},"addedBy":"unknown"}`, string(out))

	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	sr.CreatedAt = &at
	out, err = gojson.Marshal(sr)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"createdAt":"2024-06-01T00:00:00Z"`)
}

func TestMovieWithoutCreatedAtOmitsField(t *testing.T) {
	out, err := gojson.Marshal(Movie{ID: "m1", Title: "Dune"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"m1","title":"Dune"}`, string(out))
}
