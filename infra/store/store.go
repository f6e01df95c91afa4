// Package store wraps pebble as the single injected storage handle. All
// persistent state lives here; transitions stage their writes in one batch
// and commit it as a unit.
package store

import (
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "failed on open store")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns a copy of the value for key, with found=false when absent.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	val, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

// Set writes a single key durably, outside any batch. Used by background
// jobs (outbox state flips); transitions go through batches.
func (s *Store) Set(key, val []byte) error {
	return s.db.Set(key, val, pebble.Sync)
}

// Delete removes a single key durably.
func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key, pebble.Sync)
}

// NewBatch starts an atomic unit of writes.
func (s *Store) NewBatch() *pebble.Batch {
	return s.db.NewBatch()
}

// Commit applies a staged batch with fsync. Either every write in the batch
// lands or none does.
func (s *Store) Commit(b *pebble.Batch) error {
	return b.Commit(pebble.Sync)
}

// Entry is one key/value pair produced by a scan.
type Entry struct {
	Key []byte
	Val []byte
}

// Scan walks [lower, upper) in key order, reversed when desc, returning up
// to limit entries (limit <= 0 means no cap). The iterator is closed before
// returning, so the result is a finite materialized page and iteration is
// deterministic: composite keys end in the record ID, which totally orders
// equal-price entries.
func (s *Store) Scan(lower, upper []byte, desc bool, limit int) ([]Entry, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Entry
	advance := iter.Next
	valid := iter.First()
	if desc {
		advance = iter.Prev
		valid = iter.Last()
	}
	for ; valid; valid = advance() {
		if limit > 0 && len(out) >= limit {
			break
		}
		k := make([]byte, len(iter.Key()))
		copy(k, iter.Key())
		v := make([]byte, len(iter.Value()))
		copy(v, iter.Value())
		out = append(out, Entry{Key: k, Val: v})
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

// ScanPrefix is Scan over every key beginning with prefix.
func (s *Store) ScanPrefix(prefix []byte, desc bool, limit int) ([]Entry, error) {
	return s.Scan(prefix, PrefixEnd(prefix), desc, limit)
}
