package store

import (
	"bytes"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore is the persistent Store implementation: a single
// keyspace holds all three covering indices (a leading index-tag byte
// disambiguates SPO/POS/OSP), every mutation goes through one write
// batch, and the Badger options are tuned for read-heavy workloads.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (creating if absent) a BadgerDB-backed store at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	opts.MemTableSize = 128 << 20
	opts.BlockCacheSize = 256 << 20
	opts.IndexCacheSize = 100 << 20
	opts.DetectConflicts = false
	opts.NumCompactors = 4
	opts.ValueThreshold = 1 << 10

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) InsertTriples(triples []Triple) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, t := range triples {
			for _, kv := range EncodeTripleKeys(t) {
				if err := txn.Set(kv.Key, nil); err != nil {
					return fmt.Errorf("store: write to %v failed: %w", kv.Index, err)
				}
			}
		}
		return nil
	})
}

func (s *BadgerStore) DeleteTriples(triples []Triple) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, t := range triples {
			for _, kv := range EncodeTripleKeys(t) {
				if err := txn.Delete(kv.Key); err != nil && err != badger.ErrKeyNotFound {
					return fmt.Errorf("store: delete from %v failed: %w", kv.Index, err)
				}
			}
		}
		return nil
	})
}

func (s *BadgerStore) WriteBatch(deletes, inserts []Triple) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, t := range deletes {
			for _, kv := range EncodeTripleKeys(t) {
				if err := txn.Delete(kv.Key); err != nil && err != badger.ErrKeyNotFound {
					return fmt.Errorf("store: batch delete from %v failed: %w", kv.Index, err)
				}
			}
		}
		for _, t := range inserts {
			for _, kv := range EncodeTripleKeys(t) {
				if err := txn.Set(kv.Key, nil); err != nil {
					return fmt.Errorf("store: batch write to %v failed: %w", kv.Index, err)
				}
			}
		}
		return nil
	})
}

func (s *BadgerStore) Lookup(pattern Pattern) (Iterator, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	idx := pattern.BestIndex()
	start, end := KeyRange(idx, pattern)
	it, err := snap.Stream(idx, start, end)
	if err != nil {
		snap.Close()
		return nil, err
	}
	return &filteredIterator{base: it, pattern: pattern, snap: snap}, nil
}

func (s *BadgerStore) Snapshot() (Snapshot, error) {
	return &badgerSnapshot{txn: s.db.NewTransaction(false)}, nil
}

func (s *BadgerStore) CountPrefix(idx Index, pattern Pattern) (int64, error) {
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.PrefetchSize = 10000
		it := txn.NewIterator(opts)
		defer it.Close()

		start, end := KeyRange(idx, pattern)
		for it.Seek(start); it.Valid(); it.Next() {
			key := it.Item().Key()
			if end != nil && bytes.Compare(key, end) >= 0 {
				break
			}
			count++
		}
		return nil
	})
	return count, err
}

func (s *BadgerStore) Close() error { return s.db.Close() }

type badgerSnapshot struct {
	txn *badger.Txn
}

func (b *badgerSnapshot) Stream(idx Index, start, end []byte) (Iterator, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.PrefetchSize = 1000
	it := b.txn.NewIterator(opts)
	return &badgerIterator{it: it, start: start, end: end}, nil
}

func (b *badgerSnapshot) Close() error {
	b.txn.Discard()
	return nil
}

type badgerIterator struct {
	it      *badger.Iterator
	start   []byte
	end     []byte
	started bool
}

func (i *badgerIterator) Next() bool {
	if !i.started {
		i.it.Seek(i.start)
		i.started = true
	} else {
		i.it.Next()
	}
	if !i.it.Valid() {
		return false
	}
	if i.end != nil && bytes.Compare(i.it.Item().Key(), i.end) >= 0 {
		return false
	}
	return true
}

func (i *badgerIterator) Triple() Triple {
	_, t, _ := DecodeKey(i.it.Item().KeyCopy(nil))
	return t
}

func (i *badgerIterator) Err() error { return nil }

func (i *badgerIterator) Close() error {
	i.it.Close()
	return nil
}
