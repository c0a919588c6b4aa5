// Package sstable implements the immutable, sorted on-disk file format
// described in spec.md §4.4 and §6: a single ascending-key data block, a
// sparse index over every SPARSE_INDEX_INTERVAL-th record, an embedded
// Bloom filter, and a fixed 16-byte footer — byte-exact with the layout the
// pack's own hand-written LSM serialization examples use (same magic
// constant, same block ordering).
package sstable

import (
	"errors"
	"fmt"
	"regexp"
)

// Magic is the fixed file/header/footer magic constant: the ASCII codes of
// "LSMT" as the hex digits of a uint32. It is stored little-endian, so the
// bytes on disk read "TMSL".
const Magic uint32 = 0x4C534D54

// Version is the only SSTable format version this module writes or reads.
const Version uint8 = 1

// DefaultSparseIndexInterval is SPARSE_INDEX_INTERVAL: one sparse-index
// entry is recorded every Nth data record.
const DefaultSparseIndexInterval = 16

const (
	headerSize = 4 + 1 + 4 // magic + version + entryCount
	footerSize = 4 + 4 + 4 + 4
)

// ErrCorrupt is returned when an SSTable's header, footer, index, or bloom
// block fails to parse, or a data record is truncated.
var ErrCorrupt = errors.New("sstable: corrupt file")

// ErrUnsortedInput is returned by Write when the input entries are not in
// strictly ascending key order.
var ErrUnsortedInput = errors.New("sstable: unsorted input")

// ErrWriteFailure wraps underlying I/O failures during Write.
var ErrWriteFailure = errors.New("sstable: write failure")

// Entry is one (key, value) record to be written to, or read from, an
// SSTable. Value may be the tombstone sentinel.
type Entry struct {
	Key   string
	Value string
}

// IndexEntry is one sparse-index record: a key and the byte offset
// (relative to file start) of that key's data record.
type IndexEntry struct {
	Key    string
	Offset uint32
}

// fileNamePattern matches spec.md §6's "^L(\d+)_(\d+)\.sst$", extended with
// an optional "_<seq>" tiebreaker suffix for same-millisecond flushes (see
// SPEC_FULL.md §11's Open Question resolution).
var fileNamePattern = regexp.MustCompile(`^L(\d+)_(\d+)(?:_(\d+))?\.sst$`)

// FileName builds the on-disk filename for a table at the given level,
// flush timestamp, and (possibly zero) tiebreak sequence number.
func FileName(level int, timestampMillis int64, seq int) string {
	if seq == 0 {
		return fmt.Sprintf("L%d_%d.sst", level, timestampMillis)
	}
	return fmt.Sprintf("L%d_%d_%d.sst", level, timestampMillis, seq)
}

// ParseFileName extracts (level, timestampMillis, seq, ok) from a filename
// matching the pattern above; non-matching names report ok=false so the
// caller (per spec.md §6) simply ignores them.
func ParseFileName(name string) (level int, timestampMillis int64, seq int, ok bool) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, 0, false
	}

	var l, ts, s int64
	if _, err := fmt.Sscanf(m[1], "%d", &l); err != nil {
		return 0, 0, 0, false
	}
	if _, err := fmt.Sscanf(m[2], "%d", &ts); err != nil {
		return 0, 0, 0, false
	}
	if m[3] != "" {
		if _, err := fmt.Sscanf(m[3], "%d", &s); err != nil {
			return 0, 0, 0, false
		}
	}

	return int(l), ts, int(s), true
}
