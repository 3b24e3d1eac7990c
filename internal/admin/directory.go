// Package admin manages admin accounts and the login session log.
package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"moviemania/internal/apperr"
	"moviemania/internal/auth"
	xglog "moviemania/internal/log"
	"moviemania/internal/store"
	"moviemania/internal/validation"
	"moviemania/pkg/models"
)

// Notifier records directory events in the notification log.
type Notifier interface {
	Append(ctx context.Context, message string) error
}

type Directory struct {
	store  store.Store
	hasher auth.Hasher
	notes  Notifier
	now    func() time.Time
	logger zerolog.Logger

	// dummyHash is compared against when the username is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyOnce sync.Once
	dummyHash string
}

type Option func(*Directory)

func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

func NewDirectory(s store.Store, h auth.Hasher, n Notifier, opts ...Option) *Directory {
	d := &Directory{
		store:  s,
		hasher: h,
		notes:  n,
		now:    time.Now,
		logger: xglog.WithComponent("admin"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Patch lists the fields an update may change. Nil fields are left alone.
type Patch struct {
	Username *string `json:"username"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

var errInvalidCredentials = apperr.New(apperr.Unauthenticated, "invalid credentials")

// Authenticate checks password against the stored bcrypt hash. Records that
// still hold a plaintext password are compared in constant time and upgraded
// to a hash on success. Unknown users and wrong passwords fail identically.
func (d *Directory) Authenticate(ctx context.Context, username, password string) (models.Admin, error) {
	if username == "" || password == "" {
		return models.Admin{}, errInvalidCredentials
	}
	a, err := d.Get(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		d.burnComparison(password)
		return models.Admin{}, errInvalidCredentials
	}
	if err != nil {
		return models.Admin{}, err
	}

	switch {
	case a.PasswordHash != "":
		ok, err := d.hasher.Compare(a.PasswordHash, password)
		if err != nil {
			return models.Admin{}, fmt.Errorf("compare password for %q: %w", username, err)
		}
		if !ok {
			return models.Admin{}, errInvalidCredentials
		}
	case a.LegacyPassword != "":
		if subtle.ConstantTimeCompare([]byte(a.LegacyPassword), []byte(password)) != 1 {
			return models.Admin{}, errInvalidCredentials
		}
		if err := d.upgradePassword(ctx, &a, password); err != nil {
			return models.Admin{}, err
		}
	default:
		d.burnComparison(password)
		return models.Admin{}, errInvalidCredentials
	}
	return a, nil
}

func (d *Directory) burnComparison(password string) {
	d.dummyOnce.Do(func() {
		d.dummyHash, _ = d.hasher.Hash("moviemania-dummy")
	})
	if d.dummyHash != "" {
		_, _ = d.hasher.Compare(d.dummyHash, password)
	}
}

func (d *Directory) upgradePassword(ctx context.Context, a *models.Admin, password string) error {
	hash, err := d.hasher.Hash(password)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	a.LegacyPassword = ""
	if err := d.put(ctx, a.Username, *a); err != nil {
		return fmt.Errorf("upgrade password for %q: %w", a.Username, err)
	}
	d.logger.Info().Str("username", a.Username).Msg("upgraded legacy plaintext password")
	return nil
}

// Create adds an admin. role defaults to "admin".
func (d *Directory) Create(ctx context.Context, username, password, role, actor string) (models.Admin, error) {
	if err := validation.Var("username", username, "required"); err != nil {
		return models.Admin{}, err
	}
	if err := validation.Var("password", password, "required"); err != nil {
		return models.Admin{}, err
	}
	if role == "" {
		role = models.RoleAdmin
	}
	hash, err := d.hasher.Hash(password)
	if err != nil {
		return models.Admin{}, err
	}
	a := models.Admin{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    d.now().UTC(),
	}
	data, err := json.Marshal(a)
	if err != nil {
		return models.Admin{}, err
	}
	if err := d.store.Insert(ctx, store.Admins, store.Document{Key: username, Data: data}); err != nil {
		return models.Admin{}, err
	}
	d.notify(ctx, fmt.Sprintf("Admin added: %s (by %s)", username, actor))
	return a, nil
}

// Update merges p over the stored record. createdAt never changes; renaming
// onto an existing username fails with apperr.Conflict.
func (d *Directory) Update(ctx context.Context, username string, p Patch, actor string) (models.Admin, error) {
	a, err := d.Get(ctx, username)
	if err != nil {
		return models.Admin{}, err
	}
	createdAt := a.CreatedAt

	if p.Username != nil {
		if err := validation.Var("username", *p.Username, "required"); err != nil {
			return models.Admin{}, err
		}
		a.Username = *p.Username
	}
	if p.Role != nil {
		if err := validation.Var("role", *p.Role, "required"); err != nil {
			return models.Admin{}, err
		}
		a.Role = *p.Role
	}
	if p.Password != nil {
		if err := validation.Var("password", *p.Password, "required"); err != nil {
			return models.Admin{}, err
		}
		hash, err := d.hasher.Hash(*p.Password)
		if err != nil {
			return models.Admin{}, err
		}
		a.PasswordHash = hash
		a.LegacyPassword = ""
	}
	a.CreatedAt = createdAt

	if err := d.put(ctx, username, a); err != nil {
		return models.Admin{}, err
	}
	d.notify(ctx, fmt.Sprintf("Admin updated: %s (by %s)", username, actor))
	return a, nil
}

// Delete removes the admin if present and reports whether it existed. The
// event is logged either way.
func (d *Directory) Delete(ctx context.Context, username, actor string) (bool, error) {
	removed, err := d.store.Delete(ctx, store.Admins, username)
	if err != nil {
		return false, err
	}
	d.notify(ctx, fmt.Sprintf("Admin deleted: %s (by %s)", username, actor))
	return removed, nil
}

func (d *Directory) Get(ctx context.Context, username string) (models.Admin, error) {
	doc, err := d.store.Get(ctx, store.Admins, username)
	if err != nil {
		return models.Admin{}, err
	}
	return decodeAdmin(doc)
}

func (d *Directory) List(ctx context.Context) ([]models.Admin, error) {
	docs, err := d.store.List(ctx, store.Admins)
	if err != nil {
		return nil, err
	}
	admins := make([]models.Admin, 0, len(docs))
	for _, doc := range docs {
		a, err := decodeAdmin(doc)
		if err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	return admins, nil
}

func (d *Directory) Count(ctx context.Context) (int, error) {
	return d.store.Count(ctx, store.Admins)
}

// GetRole returns the admin's role, or models.RoleUnknown when the admin
// does not exist. Storage failures are still returned.
func (d *Directory) GetRole(ctx context.Context, username string) (string, error) {
	if username == "" {
		return models.RoleUnknown, nil
	}
	a, err := d.Get(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.RoleUnknown, nil
	}
	if err != nil {
		return "", err
	}
	if a.Role == "" {
		return models.RoleUnknown, nil
	}
	return a.Role, nil
}

// RecordLogin stamps lastLogin on the admin.
func (d *Directory) RecordLogin(ctx context.Context, username, addr string) error {
	a, err := d.Get(ctx, username)
	if err != nil {
		return err
	}
	a.LastLogin = &models.LoginInfo{Timestamp: d.now().UTC(), SourceAddress: addr}
	return d.put(ctx, username, a)
}

// EnsureOwner creates an owner account when the directory is empty. It
// reports whether an account was created.
func (d *Directory) EnsureOwner(ctx context.Context, username, password string) (bool, error) {
	n, err := d.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 || username == "" || password == "" {
		return false, nil
	}
	if _, err := d.Create(ctx, username, password, models.RoleOwner, "bootstrap"); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	d.logger.Info().Str("username", username).Msg("created bootstrap owner account")
	return true, nil
}

func (d *Directory) put(ctx context.Context, key string, a models.Admin) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return d.store.Replace(ctx, store.Admins, key, store.Document{Key: a.Username, Data: data})
}

func (d *Directory) notify(ctx context.Context, message string) {
	if d.notes == nil {
		return
	}
	if err := d.notes.Append(ctx, message); err != nil {
		d.logger.Warn().Err(err).Str("message", message).Msg("failed to record notification")
	}
}

func decodeAdmin(doc store.Document) (models.Admin, error) {
	var a models.Admin
	if err := json.Unmarshal(doc.Data, &a); err != nil {
		return models.Admin{}, apperr.Wrap(apperr.CorruptData, err, fmt.Sprintf("decode admin %q", doc.Key))
	}
	if a.Username == "" {
		a.Username = doc.Key
	}
	return a, nil
}
