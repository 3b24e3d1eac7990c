package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps documents under "doc/<collection>/<key>". Each value is
// an envelope carrying a per-collection sequence number that fixes the
// listing order.
type BadgerStore struct {
	db *badger.DB

	mu   sync.Mutex
	seqs map[Collection]*badger.Sequence
}

type envelope struct {
	Seq  uint64          `json:"seq"`
	Data json.RawMessage `json:"data"`
}

func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, seqs: make(map[Collection]*badger.Sequence)}, nil
}

func (s *BadgerStore) Backend() string { return "badger" }

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	for c, seq := range s.seqs {
		_ = seq.Release()
		delete(s.seqs, c)
	}
	s.mu.Unlock()
	return s.db.Close()
}

func docPrefix(c Collection) []byte { return []byte("doc/" + string(c) + "/") }

func docKey(c Collection, key string) []byte { return []byte("doc/" + string(c) + "/" + key) }

func (s *BadgerStore) nextSeq(c Collection) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.seqs[c]
	if !ok {
		var err error
		seq, err = s.db.GetSequence([]byte("seq/"+string(c)), 64)
		if err != nil {
			return 0, fmt.Errorf("sequence %s: %w", c, err)
		}
		s.seqs[c] = seq
	}
	return seq.Next()
}

func (s *BadgerStore) List(ctx context.Context, c Collection) ([]Document, error) {
	l, err := LayoutOf(c)
	if err != nil {
		return nil, err
	}

	type entry struct {
		seq uint64
		doc Document
	}
	var entries []entry
	prefix := docPrefix(c)

	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key()[len(prefix):])
			var env envelope
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return fmt.Errorf("decode %s %q: %w", c, key, err)
			}
			entries = append(entries, entry{seq: env.Seq, doc: Document{Key: key, Data: env.Data}})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c, err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if l.Prepend {
			return entries[i].seq > entries[j].seq
		}
		return entries[i].seq < entries[j].seq
	})
	docs := make([]Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, e.doc)
	}
	return docs, nil
}

func (s *BadgerStore) Get(ctx context.Context, c Collection, key string) (Document, error) {
	var env envelope
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		env, err = readEnvelope(txn, docKey(c, key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Document{}, notFound(c, key)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s %q: %w", c, key, err)
	}
	return Document{Key: key, Data: env.Data}, nil
}

func (s *BadgerStore) Insert(ctx context.Context, c Collection, doc Document) error {
	doc, err := Stamp(c, doc)
	if err != nil {
		return err
	}
	seq, err := s.nextSeq(c)
	if err != nil {
		return err
	}
	buf, err := json.Marshal(envelope{Seq: seq, Data: doc.Data})
	if err != nil {
		return err
	}

	k := docKey(c, doc.Key)
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(k); err == nil {
			return conflict(c, doc.Key)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(k, buf)
	})
	if err != nil {
		return fmt.Errorf("insert %s %q: %w", c, doc.Key, err)
	}
	return nil
}

func (s *BadgerStore) Replace(ctx context.Context, c Collection, key string, doc Document) error {
	doc, err := Stamp(c, doc)
	if err != nil {
		return err
	}

	oldKey, newKey := docKey(c, key), docKey(c, doc.Key)
	err = s.db.Update(func(txn *badger.Txn) error {
		old, err := readEnvelope(txn, oldKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFound(c, key)
		}
		if err != nil {
			return err
		}
		if doc.Key != key {
			if _, err := txn.Get(newKey); err == nil {
				return conflict(c, doc.Key)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Delete(oldKey); err != nil {
				return err
			}
		}
		buf, err := json.Marshal(envelope{Seq: old.Seq, Data: doc.Data})
		if err != nil {
			return err
		}
		return txn.Set(newKey, buf)
	})
	if err != nil {
		return fmt.Errorf("replace %s %q: %w", c, key, err)
	}
	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, c Collection, key string) (bool, error) {
	deleted := false
	k := docKey(c, key)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(k); errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		deleted = true
		return txn.Delete(k)
	})
	if err != nil {
		return false, fmt.Errorf("delete %s %q: %w", c, key, err)
	}
	return deleted, nil
}

func (s *BadgerStore) Count(ctx context.Context, c Collection) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: docPrefix(c)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c, err)
	}
	return n, nil
}

func readEnvelope(txn *badger.Txn, key []byte) (envelope, error) {
	var env envelope
	item, err := txn.Get(key)
	if err != nil {
		return env, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &env)
	})
	return env, err
}
