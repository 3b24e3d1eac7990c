// Package notify implements the notification log: an append-only text file
// with one "[<ISO-8601 instant>] <message>" line per event.
package notify

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"moviemania/internal/apperr"
	xglog "moviemania/internal/log"
	"moviemania/internal/metrics"
	"moviemania/pkg/models"
)

// TimeLayout matches JavaScript's Date.toISOString, which older log files use.
const TimeLayout = "2006-01-02T15:04:05.000Z"

var linePattern = regexp.MustCompile(`^\[(.*?)\]\s(.+)$`)

// Publisher receives every appended entry, e.g. the live dashboard hub.
type Publisher interface {
	Publish(models.Notification)
}

type Log struct {
	path string
	now  func() time.Time
	pubs []Publisher

	mu sync.Mutex
}

type Option func(*Log)

func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithPublisher adds a receiver for appended entries. It may be given more
// than once.
func WithPublisher(p Publisher) Option {
	return func(l *Log) {
		if p != nil {
			l.pubs = append(l.pubs, p)
		}
	}
}

func NewLog(path string, opts ...Option) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create notification dir: %w", err)
	}
	l := &Log{path: path, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Log) Path() string { return l.path }

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// Append writes one entry. Line breaks in message become spaces so the
// entry stays on one line; other whitespace is kept.
func (l *Log) Append(ctx context.Context, message string) error {
	message = strings.TrimSpace(lineBreaks.Replace(message))
	if message == "" {
		return apperr.New(apperr.InvalidInput, "notification message is empty")
	}
	at := l.now().UTC().Truncate(time.Millisecond)
	line := "[" + at.Format(TimeLayout) + "] " + message + "\n"

	l.mu.Lock()
	err := appendLine(l.path, line)
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("append notification: %w", err)
	}

	metrics.NotificationsAppended.Inc()
	entry := models.Notification{Timestamp: at.UnixMilli(), Message: message}
	for _, p := range l.pubs {
		p.Publish(entry)
	}
	return nil
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Entries yields the log's entries in file order. The file is read once up
// front; lines are parsed as the sequence is consumed. A malformed line
// yields an apperr.CorruptData error and iteration continues.
func (l *Log) Entries(ctx context.Context) iter.Seq2[models.Notification, error] {
	return func(yield func(models.Notification, error) bool) {
		data, err := l.read()
		if err != nil {
			yield(models.Notification{}, err)
			return
		}
		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		lineNo := 0
		for sc.Scan() {
			lineNo++
			if err := ctx.Err(); err != nil {
				yield(models.Notification{}, err)
				return
			}
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			n, err := ParseLine(line)
			if err != nil {
				err = apperr.Wrap(apperr.CorruptData, err, fmt.Sprintf("notification line %d", lineNo))
			}
			if !yield(n, err) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(models.Notification{}, fmt.Errorf("scan notifications: %w", err))
		}
	}
}

// List returns every well-formed entry; malformed lines are skipped.
func (l *Log) List(ctx context.Context) ([]models.Notification, error) {
	logger := xglog.FromContext(ctx)
	out := []models.Notification{}
	for n, err := range l.Entries(ctx) {
		if apperr.KindOf(err) == apperr.CorruptData {
			logger.Warn().Err(err).Msg("skipping malformed notification line")
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// DeleteByTimestamps rewrites the log without the entries whose timestamp
// (unix millis) is in timestamps. Lines that do not parse are always kept.
// It returns the number of removed entries.
func (l *Log) DeleteByTimestamps(ctx context.Context, timestamps []int64) (int, error) {
	drop := make(map[int64]struct{}, len(timestamps))
	for _, ts := range timestamps {
		drop[ts] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read notifications: %w", err)
	}

	var kept strings.Builder
	removed := 0
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if n, err := ParseLine(trimmed); err == nil {
			if _, ok := drop[n.Timestamp]; ok {
				removed++
				continue
			}
		}
		kept.WriteString(line)
		kept.WriteByte('\n')
	}
	if removed == 0 {
		return 0, nil
	}

	if err := renameio.WriteFile(l.path, []byte(kept.String()), 0o644); err != nil {
		return 0, fmt.Errorf("rewrite notifications: %w", err)
	}
	xglog.FromContext(ctx).Debug().Int("removed", removed).Msg("notifications deleted")
	return removed, nil
}

// Raw returns the log file contents, empty when the log does not exist.
func (l *Log) Raw() ([]byte, error) {
	return l.read()
}

func (l *Log) read() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read notifications: %w", err)
	}
	return data, nil
}

// ParseLine parses one "[<instant>] <message>" line.
func ParseLine(line string) (models.Notification, error) {
	m := linePattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return models.Notification{}, fmt.Errorf("line %q does not match [timestamp] message", line)
	}
	at, err := time.Parse(time.RFC3339Nano, m[1])
	if err != nil {
		return models.Notification{}, fmt.Errorf("bad timestamp %q: %w", m[1], err)
	}
	return models.Notification{Timestamp: at.UnixMilli(), Message: m[2]}, nil
}
