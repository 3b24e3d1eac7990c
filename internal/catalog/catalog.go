// Package catalog implements the movie and series catalog on top of the
// record store.
package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"moviemania/internal/apperr"
	xglog "moviemania/internal/log"
	"moviemania/internal/store"
	"moviemania/pkg/models"
)

// RoleLookup resolves an admin's role at the time of the request.
type RoleLookup interface {
	GetRole(ctx context.Context, username string) (string, error)
}

type Notifier interface {
	Append(ctx context.Context, message string) error
}

type Service struct {
	store  store.Store
	roles  RoleLookup
	notes  Notifier
	now    func() time.Time
	logger zerolog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st store.Store, roles RoleLookup, notes Notifier, opts ...Option) *Service {
	s := &Service{
		store:  st,
		roles:  roles,
		notes:  notes,
		now:    time.Now,
		logger: xglog.WithComponent("catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// requireOwner fails with apperr.Forbidden unless actor currently holds the
// owner role.
func (s *Service) requireOwner(ctx context.Context, actor string) error {
	role, err := s.roles.GetRole(ctx, actor)
	if err != nil {
		return fmt.Errorf("look up role of %q: %w", actor, err)
	}
	if role != models.RoleOwner {
		return apperr.New(apperr.Forbidden, "only owners can delete")
	}
	return nil
}

func (s *Service) notify(ctx context.Context, format string, args ...any) {
	if s.notes == nil {
		return
	}
	message := fmt.Sprintf(format, args...)
	if err := s.notes.Append(ctx, message); err != nil {
		s.logger.Warn().Err(err).Str("message", message).Msg("failed to record notification")
	}
}

func byline(actor string) string {
	if actor == "" {
		return "unknown"
	}
	return actor
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases title, collapses every run of characters outside
// [a-z0-9] into one dash and trims leading and trailing dashes.
func Slugify(title string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
}
