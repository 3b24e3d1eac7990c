package admin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"moviemania/internal/apperr"
	"moviemania/internal/store"
	"moviemania/pkg/models"
)

// Sessions is the append-only login log.
type Sessions struct {
	store store.Store
	now   func() time.Time
}

func NewSessions(s store.Store, now func() time.Time) *Sessions {
	if now == nil {
		now = time.Now
	}
	return &Sessions{store: s, now: now}
}

// Fingerprint identifies a token in the session log without storing it.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "t_" + hex.EncodeToString(sum[:8])
}

func (s *Sessions) Record(ctx context.Context, username, token, addr string) (models.Session, error) {
	sess := models.Session{
		ID:            uuid.NewString(),
		Username:      username,
		Token:         Fingerprint(token),
		SourceAddress: addr,
		Timestamp:     s.now().UnixMilli(),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return models.Session{}, err
	}
	if err := s.store.Insert(ctx, store.Sessions, store.Document{Key: sess.ID, Data: data}); err != nil {
		return models.Session{}, fmt.Errorf("record session: %w", err)
	}
	return sess, nil
}

func (s *Sessions) List(ctx context.Context) ([]models.Session, error) {
	docs, err := s.store.List(ctx, store.Sessions)
	if err != nil {
		return nil, err
	}
	out := make([]models.Session, 0, len(docs))
	for _, doc := range docs {
		var sess models.Session
		if err := json.Unmarshal(doc.Data, &sess); err != nil {
			return nil, apperr.Wrap(apperr.CorruptData, err, fmt.Sprintf("decode session %q", doc.Key))
		}
		out = append(out, sess)
	}
	return out, nil
}

// CountSince counts sessions opened at or after since.
func (s *Sessions) CountSince(ctx context.Context, since time.Time) (int, error) {
	sessions, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := since.UnixMilli()
	n := 0
	for _, sess := range sessions {
		if sess.Timestamp >= cutoff {
			n++
		}
	}
	return n, nil
}
