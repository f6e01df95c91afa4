// Package outbox is the durable event outbox. Transitions append committed
// events in the same batch as their state mutations; the broadcaster job
// drains pending records to Kafka and acknowledges them afterwards, so an
// event is never lost between a commit and a publish.
package outbox

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"bazaar/infra/sequence"
	"bazaar/infra/store"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// binary encoding: [state:1][retries:4][lastAttempt:8][payload...]
func encodeRecord(r Record) []byte {
	buf := make([]byte, 13+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[13:], r.Payload)
	return buf
}

func decodeRecord(seq uint64, b []byte) (Record, error) {
	if len(b) < 13 {
		return Record{}, errors.New("invalid outbox record length")
	}
	payload := make([]byte, len(b)-13)
	copy(payload, b[13:])
	return Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     payload,
	}, nil
}

// -------------------- Outbox --------------------

var keyPrefix = []byte("x/")

type Outbox struct {
	store *store.Store
	seq   *sequence.Sequencer
}

// Open seeds the sequence from the highest existing key so records keep
// appending after a restart.
func Open(s *store.Store) (*Outbox, error) {
	entries, err := s.ScanPrefix(keyPrefix, true, 1)
	if err != nil {
		return nil, errors.Wrap(err, "failed on scan outbox")
	}
	var last uint64
	if len(entries) == 1 {
		last = store.DecodeU64(entries[0].Key[len(keyPrefix):])
	}
	return &Outbox{store: s, seq: sequence.New(last)}, nil
}

func keyFor(seq uint64) []byte {
	return store.Key(keyPrefix, store.U64(seq))
}

// Append stages a new pending record inside the transition batch.
func (o *Outbox) Append(b *pebble.Batch, payload []byte) error {
	rec := Record{State: StateNew, Payload: payload}
	return b.Set(keyFor(o.seq.Next()), encodeRecord(rec), nil)
}

// ScanPending iterates NEW and FAILED records in append order.
func (o *Outbox) ScanPending(fn func(rec Record) error) error {
	entries, err := o.store.ScanPrefix(keyPrefix, false, 0)
	if err != nil {
		return err
	}
	for _, e := range entries {
		rec, err := decodeRecord(store.DecodeU64(e.Key[len(keyPrefix):]), e.Val)
		if err != nil {
			return err
		}
		if rec.State != StateNew && rec.State != StateFailed {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// MarkSent flips a record to SENT before the publish attempt.
func (o *Outbox) MarkSent(rec Record, attemptAt int64) error {
	rec.State = StateSent
	rec.Retries++
	rec.LastAttempt = attemptAt
	return o.store.Set(keyFor(rec.Seq), encodeRecord(rec))
}

// MarkFailed returns a record to the retry pool.
func (o *Outbox) MarkFailed(rec Record, attemptAt int64) error {
	rec.State = StateFailed
	rec.LastAttempt = attemptAt
	return o.store.Set(keyFor(rec.Seq), encodeRecord(rec))
}

// Ack deletes a published record.
func (o *Outbox) Ack(rec Record) error {
	return o.store.Delete(keyFor(rec.Seq))
}
