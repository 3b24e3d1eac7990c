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

func (s *Service) ListSeries(ctx context.Context) ([]models.Series, error) {
	docs, err := s.store.List(ctx, store.Series)
	if err != nil {
		return nil, err
	}
	out := make([]models.Series, 0, len(docs))
	for _, doc := range docs {
		sr, err := decodeSeries(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, nil
}

func (s *Service) GetSeries(ctx context.Context, slug string) (models.Series, error) {
	doc, err := s.store.Get(ctx, store.Series, slug)
	if err != nil {
		return models.Series{}, err
	}
	return decodeSeries(doc)
}

// AddSeries stores sr under its slug, derived from the title when sr.ID is
// empty. An existing slug fails with apperr.Conflict.
func (s *Service) AddSeries(ctx context.Context, sr models.Series, actor string) (models.Series, error) {
	if strings.TrimSpace(sr.Title) == "" {
		return models.Series{}, apperr.New(apperr.InvalidInput, "title is required")
	}
	sr.ID = strings.TrimSpace(sr.ID)
	if sr.ID == "" {
		sr.ID = Slugify(sr.Title)
	}
	if err := validation.Struct(sr); err != nil {
		return models.Series{}, apperr.New(apperr.InvalidInput, "series slug is empty")
	}
	sr.ApplyDefaults()
	if sr.CreatedAt == nil || sr.CreatedAt.IsZero() {
		now := s.now().UTC()
		sr.CreatedAt = &now
	}
	data, err := json.Marshal(sr)
	if err != nil {
		return models.Series{}, err
	}
	if err := s.store.Insert(ctx, store.Series, store.Document{Key: sr.ID, Data: data}); err != nil {
		return models.Series{}, err
	}
	s.notify(ctx, "Series added: %s (by %s)", sr.Title, byline(actor))
	return sr, nil
}

// DeleteSeries removes the series when actor is an owner. Deleting a
// missing series succeeds and reports false.
func (s *Service) DeleteSeries(ctx context.Context, slug, actor string) (bool, error) {
	if err := s.requireOwner(ctx, actor); err != nil {
		return false, err
	}
	removed, err := s.store.Delete(ctx, store.Series, slug)
	if err != nil {
		return false, err
	}
	if removed {
		s.notify(ctx, "Series deleted: %s (by %s)", slug, byline(actor))
	}
	return removed, nil
}

func (s *Service) CountSeries(ctx context.Context) (int, error) {
	return s.store.Count(ctx, store.Series)
}

func decodeSeries(doc store.Document) (models.Series, error) {
	var sr models.Series
	if err := json.Unmarshal(doc.Data, &sr); err != nil {
		return models.Series{}, apperr.Wrap(apperr.CorruptData, err, fmt.Sprintf("decode series %q", doc.Key))
	}
	if sr.ID == "" {
		sr.ID = doc.Key
	}
	sr.ApplyDefaults()
	return sr, nil
}
