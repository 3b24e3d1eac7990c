package catalog

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"moviemania/internal/apperr"
	"moviemania/internal/store"
	"moviemania/internal/validation"
	"moviemania/pkg/models"
)

// MovieFilter narrows ListMovies. The zero value lists everything.
type MovieFilter struct {
	// Query matches a case-insensitive substring of the title.
	Query  string
	Limit  int
	Offset int
}

// ListMovies returns movies newest-first.
func (s *Service) ListMovies(ctx context.Context, f MovieFilter) ([]models.Movie, error) {
	docs, err := s.store.List(ctx, store.Movies)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))

	movies := make([]models.Movie, 0, len(docs))
	for _, doc := range docs {
		m, err := decodeMovie(doc)
		if err != nil {
			return nil, err
		}
		if q != "" && !strings.Contains(strings.ToLower(m.Title), q) {
			continue
		}
		movies = append(movies, m)
	}
	return page(movies, f.Offset, f.Limit), nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (s *Service) GetMovie(ctx context.Context, id string) (models.Movie, error) {
	doc, err := s.store.Get(ctx, store.Movies, id)
	if err != nil {
		return models.Movie{}, err
	}
	return decodeMovie(doc)
}

// AddMovie stores m at the head of the collection. A duplicate id fails
// with apperr.Conflict and leaves the stored movie untouched.
func (s *Service) AddMovie(ctx context.Context, m models.Movie, actor string) (models.Movie, error) {
	m.ID = strings.TrimSpace(m.ID)
	if err := validation.Struct(m); err != nil {
		return models.Movie{}, err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return models.Movie{}, err
	}
	if err := s.store.Insert(ctx, store.Movies, store.Document{Key: m.ID, Data: data}); err != nil {
		return models.Movie{}, err
	}
	s.notify(ctx, "Movie added: %s (by %s)", m.Title, byline(actor))
	return m, nil
}

// UpdateMovie merges patch into the stored movie. The id never changes and
// the title cannot be cleared.
func (s *Service) UpdateMovie(ctx context.Context, id string, patch map[string]any, actor string) (models.Movie, error) {
	m, err := s.GetMovie(ctx, id)
	if err != nil {
		return models.Movie{}, err
	}
	delete(patch, "id")
	if err := m.Merge(patch); err != nil {
		return models.Movie{}, apperr.Wrap(apperr.InvalidInput, err, "invalid movie update")
	}
	if err := validation.Struct(m); err != nil {
		return models.Movie{}, err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return models.Movie{}, err
	}
	if err := s.store.Replace(ctx, store.Movies, id, store.Document{Key: id, Data: data}); err != nil {
		return models.Movie{}, err
	}
	s.notify(ctx, "Movie updated: %s (by %s)", id, byline(actor))
	return m, nil
}

// DeleteMovie removes the movie when actor is an owner. Deleting a missing
// movie succeeds and reports false.
func (s *Service) DeleteMovie(ctx context.Context, id, actor string) (bool, error) {
	if err := s.requireOwner(ctx, actor); err != nil {
		return false, err
	}
	removed, err := s.store.Delete(ctx, store.Movies, id)
	if err != nil {
		return false, err
	}
	if removed {
		s.notify(ctx, "Movie deleted: %s (by %s)", id, byline(actor))
	}
	return removed, nil
}

func (s *Service) CountMovies(ctx context.Context) (int, error) {
	return s.store.Count(ctx, store.Movies)
}

func decodeMovie(doc store.Document) (models.Movie, error) {
	var m models.Movie
	if err := json.Unmarshal(doc.Data, &m); err != nil {
		return models.Movie{}, apperr.Wrap(apperr.CorruptData, err, fmt.Sprintf("decode movie %q", doc.Key))
	}
	if m.ID == "" {
		m.ID = doc.Key
	}
	return m, nil
}
