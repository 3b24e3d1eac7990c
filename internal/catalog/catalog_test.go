package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviemania/internal/apperr"
	"moviemania/internal/store"
	"moviemania/pkg/models"
)

type roles map[string]string

func (r roles) GetRole(_ context.Context, username string) (string, error) {
	if role, ok := r[username]; ok {
		return role, nil
	}
	return models.RoleUnknown, nil
}

type recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *recorder) Append(_ context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

type failingNotifier struct{}

func (failingNotifier) Append(context.Context, string) error { return errors.New("disk full") }

var testRoles = roles{"boss": models.RoleOwner, "helper": models.RoleAdmin}

func newService(t *testing.T) (*Service, *recorder) {
	t.Helper()
	st, err := store.OpenFile(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	rec := &recorder{}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return NewService(st, testRoles, rec, WithClock(func() time.Time { return now })), rec
}

func ids(movies []models.Movie) []string {
	out := make([]string, 0, len(movies))
	for _, m := range movies {
		out = append(out, m.ID)
	}
	return out
}

func TestAddMovieRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t)

	_, err := svc.AddMovie(ctx, models.Movie{ID: "m1", Title: "X"}, "helper")
	require.NoError(t, err)

	_, err = svc.AddMovie(ctx, models.Movie{ID: "m1", Title: "Y"}, "helper")
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	movies, err := svc.ListMovies(ctx, MovieFilter{})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "X", movies[0].Title)
	assert.Equal(t, []string{"Movie added: X (by helper)"}, rec.messages)
}

func TestAddMovieValidates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.AddMovie(ctx, models.Movie{Title: "No id"}, "helper")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	assert.Equal(t, "id is required", apperr.Message(err))

	_, err = svc.AddMovie(ctx, models.Movie{ID: "m2"}, "helper")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	assert.Equal(t, "title is required", apperr.Message(err))
}

func TestListMoviesNewestFirstAndFilter(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	for _, m := range []models.Movie{
		{ID: "a", Title: "Alien"},
		{ID: "b", Title: "Aliens"},
		{ID: "c", Title: "Brazil"},
	} {
		_, err := svc.AddMovie(ctx, m, "helper")
		require.NoError(t, err)
	}

	all, err := svc.ListMovies(ctx, MovieFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(all))

	aliens, err := svc.ListMovies(ctx, MovieFilter{Query: "ALIEN"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(aliens))

	paged, err := svc.ListMovies(ctx, MovieFilter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(paged))

	empty, err := svc.ListMovies(ctx, MovieFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdateMovieMerges(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t)

	_, err := svc.AddMovie(ctx, models.Movie{
		ID: "m1", Title: "X", Poster: "/images/x.png",
		Extra: map[string]any{"year": "1999", "genre": "drama"},
	}, "helper")
	require.NoError(t, err)

	updated, err := svc.UpdateMovie(ctx, "m1", map[string]any{"id": "hijack", "year": "2000", "genre": nil}, "helper")
	require.NoError(t, err)
	assert.Equal(t, "m1", updated.ID)
	assert.Equal(t, "X", updated.Title)
	assert.Equal(t, "/images/x.png", updated.Poster)
	assert.Equal(t, map[string]any{"year": "2000"}, updated.Extra)

	got, err := svc.GetMovie(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, updated.Extra, got.Extra)

	_, err = svc.UpdateMovie(ctx, "m1", map[string]any{"title": ""}, "helper")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = svc.UpdateMovie(ctx, "m1", map[string]any{"title": 42}, "helper")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = svc.UpdateMovie(ctx, "missing", map[string]any{"title": "Z"}, "helper")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	assert.Contains(t, rec.messages, "Movie updated: m1 (by helper)")
}

func TestDeleteMovieRequiresOwner(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t)

	_, err := svc.AddMovie(ctx, models.Movie{ID: "m1", Title: "X"}, "helper")
	require.NoError(t, err)

	for _, actor := range []string{"helper", "stranger", ""} {
		_, err = svc.DeleteMovie(ctx, "m1", actor)
		assert.True(t, errors.Is(err, apperr.ErrForbidden), actor)
	}
	n, err := svc.CountMovies(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "collection unchanged after forbidden delete")

	removed, err := svc.DeleteMovie(ctx, "m1", "boss")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.DeleteMovie(ctx, "m1", "boss")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Equal(t, []string{"Movie added: X (by helper)", "Movie deleted: m1 (by boss)"}, rec.messages)
}

func TestSeriesLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t)

	sr, err := svc.AddSeries(ctx, models.Series{Title: "Hell's Paradise!"}, "helper")
	require.NoError(t, err)
	assert.Equal(t, "hell-s-paradise", sr.ID)
	assert.Equal(t, "unknown", sr.AddedBy)
	assert.JSONEq(t, `{}`, string(sr.Episodes))
	require.NotNil(t, sr.CreatedAt)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *sr.CreatedAt)

	_, err = svc.AddSeries(ctx, models.Series{ID: "hell-s-paradise", Title: "Other"}, "helper")
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = svc.AddSeries(ctx, models.Series{Title: "!!!"}, "helper")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = svc.AddSeries(ctx, models.Series{ID: "x"}, "helper")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	list, err := svc.ListSeries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sr.Title, list[0].Title)
	assert.Equal(t, sr.Description, list[0].Description)
	assert.JSONEq(t, string(sr.Episodes), string(list[0].Episodes))

	_, err = svc.DeleteSeries(ctx, sr.ID, "helper")
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	removed, err := svc.DeleteSeries(ctx, sr.ID, "boss")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = svc.GetSeries(ctx, sr.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	n, err := svc.CountSeries(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, []string{
		"Series added: Hell's Paradise! (by helper)",
		"Series deleted: hell-s-paradise (by boss)",
	}, rec.messages)
}

func TestNotificationFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	st, err := store.OpenFile(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	svc := NewService(st, testRoles, failingNotifier{})

	_, err = svc.AddMovie(ctx, models.Movie{ID: "m1", Title: "X"}, "helper")
	require.NoError(t, err)
	_, err = svc.GetMovie(ctx, "m1")
	assert.NoError(t, err)
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Breaking Bad", "breaking-bad"},
		{"  Leading & Trailing ", "leading-trailing"},
		{"Ünïcode", "n-code"},
		{"---", ""},
		{"Season 2", "season-2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}
