package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"moviemania/pkg/database"
)

// SQLiteStore keeps one row per document in the documents table. Row order
// (seq) is insertion order and survives renames.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Backend() string { return "sqlite" }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) List(ctx context.Context, c Collection) ([]Document, error) {
	l, err := LayoutOf(c)
	if err != nil {
		return nil, err
	}
	q := `SELECT key, data FROM documents WHERE collection = ? ORDER BY seq ASC`
	if l.Prepend {
		q = `SELECT key, data FROM documents WHERE collection = ? ORDER BY seq DESC`
	}

	rows, err := s.db.QueryContext(ctx, q, string(c))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var data string
		if err := rows.Scan(&d.Key, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c, err)
		}
		d.Data = []byte(data)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, c Collection, key string) (Document, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = ? AND key = ?`, string(c), key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, notFound(c, key)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s %q: %w", c, key, err)
	}
	return Document{Key: key, Data: []byte(data)}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, c Collection, doc Document) error {
	doc, err := Stamp(c, doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO documents(collection, key, data) VALUES(?,?,?)`, string(c), doc.Key, string(doc.Data))
	if isUniqueViolation(err) {
		return conflict(c, doc.Key)
	}
	if err != nil {
		return fmt.Errorf("insert %s %q: %w", c, doc.Key, err)
	}
	return nil
}

func (s *SQLiteStore) Replace(ctx context.Context, c Collection, key string, doc Document) error {
	doc, err := Stamp(c, doc)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
	UPDATE documents SET key = ?, data = ?, updated_at = CURRENT_TIMESTAMP
	WHERE collection = ? AND key = ?`, doc.Key, string(doc.Data), string(c), key)
	if isUniqueViolation(err) {
		return conflict(c, doc.Key)
	}
	if err != nil {
		return fmt.Errorf("replace %s %q: %w", c, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace %s %q: %w", c, key, err)
	}
	if n == 0 {
		return notFound(c, key)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, c Collection, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND key = ?`, string(c), key)
	if err != nil {
		return false, fmt.Errorf("delete %s %q: %w", c, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s %q: %w", c, key, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Count(ctx context.Context, c Collection) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE collection = ?`, string(c)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c, err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
