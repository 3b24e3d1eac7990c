package notify

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviemania/internal/apperr"
	"moviemania/pkg/models"
)

// tickingClock advances one second per call so every entry has a distinct
// timestamp.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Second)
		return t
	}
}

type recorder struct {
	mu  sync.Mutex
	got []models.Notification
}

func (r *recorder) Publish(n models.Notification) {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
}

func newTestLog(t *testing.T, opts ...Option) *Log {
	t.Helper()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]Option{WithClock(tickingClock(start))}, opts...)
	l, err := NewLog(filepath.Join(t.TempDir(), "notifications.log"), opts...)
	require.NoError(t, err)
	return l
}

func TestAppendWritesBracketedLine(t *testing.T) {
	rec := &recorder{}
	l := newTestLog(t, WithPublisher(rec))

	require.NoError(t, l.Append(context.Background(), "Movie added: Dune (by root)"))

	raw, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Equal(t, "[2025-06-01T12:00:00.000Z] Movie added: Dune (by root)\n", string(raw))

	require.Len(t, rec.got, 1)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli(), rec.got[0].Timestamp)
}

func TestAppendFlattensLineBreaks(t *testing.T) {
	l := newTestLog(t)
	require.NoError(t, l.Append(context.Background(), "multi\nline\r\nmessage"))

	entries, err := l.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "multi line message", entries[0].Message)

	require.NoError(t, l.Append(context.Background(), "Movie added: A  B\tC (by root)"))
	entries, err = l.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Movie added: A  B\tC (by root)", entries[1].Message, "inner whitespace is kept")

	err = l.Append(context.Background(), "  \n ")
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestListMissingFileIsEmpty(t *testing.T) {
	l := newTestLog(t)
	entries, err := l.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestMalformedLines(t *testing.T) {
	l := newTestLog(t)
	content := "[2025-06-01T12:00:00.000Z] first\n" +
		"garbage without brackets\n" +
		"[not-a-date] second\n" +
		"\n" +
		"[2025-06-01T12:00:01.000Z] third\n"
	require.NoError(t, os.WriteFile(l.Path(), []byte(content), 0o644))

	var corrupt int
	for _, err := range l.Entries(context.Background()) {
		if err != nil {
			assert.Equal(t, apperr.CorruptData, apperr.KindOf(err))
			corrupt++
		}
	}
	assert.Equal(t, 2, corrupt, "Entries surfaces each malformed line")

	entries, err := l.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2, "List skips malformed lines")
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "third", entries[1].Message)

	removed, err := l.DeleteByTimestamps(context.Background(), []int64{entries[0].Timestamp})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	raw, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Equal(t, "garbage without brackets\n[not-a-date] second\n[2025-06-01T12:00:01.000Z] third\n", string(raw),
		"unparsable lines survive deletion")
}

func TestDeleteLeavesComplementInOrder(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)
	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, l.Append(ctx, msg))
	}
	all, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)

	removed, err := l.DeleteByTimestamps(ctx, []int64{all[1].Timestamp, all[3].Timestamp, 42})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	left, err := l.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Notification{all[0], all[2], all[4]}, left)
}

func TestDeleteIndentedLine(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)
	content := "  [2024-01-01T00:00:00.000Z] indented\n[2024-01-01T00:00:01.000Z] flush\n"
	require.NoError(t, os.WriteFile(l.Path(), []byte(content), 0o644))

	entries, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "indented", entries[0].Message)

	removed, err := l.DeleteByTimestamps(ctx, []int64{entries[0].Timestamp})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	left, err := l.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Notification{entries[1]}, left)
}

func TestDeleteOnMissingLog(t *testing.T) {
	l := newTestLog(t)
	removed, err := l.DeleteByTimestamps(context.Background(), []int64{1})
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestParseLineAcceptsLegacyInstant(t *testing.T) {
	n, err := ParseLine("[2024-03-09T08:15:30.123Z] Series deleted: dark")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 9, 8, 15, 30, 123e6, time.UTC).UnixMilli(), n.Timestamp)
	assert.Equal(t, "Series deleted: dark", n.Message)
}
