package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	xglog "moviemania/internal/log"
)

// FileStore keeps each collection in one JSON file under dir. Every
// operation reads the whole file, mutates it in memory and writes it back;
// mu serializes those cycles within the process.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func OpenFile(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Backend() string { return "file" }

func (s *FileStore) Close() error { return nil }

// Path returns the file backing c.
func (s *FileStore) Path(c Collection) (string, error) {
	l, err := LayoutOf(c)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, l.File), nil
}

// load returns the collection, or the empty collection when its file does
// not exist yet.
func (s *FileStore) load(c Collection) ([]Document, error) {
	path, err := s.Path(c)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(c, data)
}

// save replaces the collection file atomically.
func (s *FileStore) save(ctx context.Context, c Collection, docs []Document) error {
	logger := xglog.FromContext(ctx)

	path, err := s.Path(c)
	if err != nil {
		return err
	}
	data, err := Encode(c, docs)
	if err != nil {
		return err
	}

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending %s: %w", path, err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("cleanup pending collection file")
		}
	}()

	if _, err := pendingFile.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context, c Collection) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(c)
}

func (s *FileStore) Get(ctx context.Context, c Collection, key string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load(c)
	if err != nil {
		return Document{}, err
	}
	if i := indexOf(docs, key); i >= 0 {
		return docs[i], nil
	}
	return Document{}, notFound(c, key)
}

func (s *FileStore) Insert(ctx context.Context, c Collection, doc Document) error {
	l, err := LayoutOf(c)
	if err != nil {
		return err
	}
	doc, err = Stamp(c, doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load(c)
	if err != nil {
		return err
	}
	if indexOf(docs, doc.Key) >= 0 {
		return conflict(c, doc.Key)
	}
	if l.Prepend {
		docs = append([]Document{doc}, docs...)
	} else {
		docs = append(docs, doc)
	}
	return s.save(ctx, c, docs)
}

func (s *FileStore) Replace(ctx context.Context, c Collection, key string, doc Document) error {
	doc, err := Stamp(c, doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load(c)
	if err != nil {
		return err
	}
	i := indexOf(docs, key)
	if i < 0 {
		return notFound(c, key)
	}
	if doc.Key != key && indexOf(docs, doc.Key) >= 0 {
		return conflict(c, doc.Key)
	}
	docs[i] = doc
	return s.save(ctx, c, docs)
}

func (s *FileStore) Delete(ctx context.Context, c Collection, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load(c)
	if err != nil {
		return false, err
	}
	i := indexOf(docs, key)
	if i < 0 {
		return false, nil
	}
	docs = append(docs[:i], docs[i+1:]...)
	return true, s.save(ctx, c, docs)
}

func (s *FileStore) Count(ctx context.Context, c Collection) (int, error) {
	docs, err := s.List(ctx, c)
	return len(docs), err
}

func indexOf(docs []Document, key string) int {
	for i, d := range docs {
		if d.Key == key {
			return i
		}
	}
	return -1
}
