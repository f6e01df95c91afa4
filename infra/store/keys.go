package store

import "encoding/binary"

// Composite key helpers. Keys are tuples of raw segments; numeric segments
// are big-endian so byte order equals numeric order, and variable-length
// string segments are NUL-terminated so no segment can run into the next.

// Key concatenates segments into one key.
func Key(segments ...[]byte) []byte {
	n := 0
	for _, s := range segments {
		n += len(s)
	}
	out := make([]byte, 0, n)
	for _, s := range segments {
		out = append(out, s...)
	}
	return out
}

// U64 encodes v big-endian, preserving numeric order under byte comparison.
func U64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// DecodeU64 reads a big-endian uint64 segment.
func DecodeU64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// Str encodes a NUL-terminated string segment. Callers must reject input
// containing NUL before it reaches a key.
func Str(s string) []byte {
	out := make([]byte, 0, len(s)+1)
	out = append(out, s...)
	out = append(out, 0)
	return out
}

// PrefixEnd returns the smallest key greater than every key with the given
// prefix, for use as an exclusive upper bound. nil means unbounded.
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
