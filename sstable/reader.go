package sstable

import (
	"encoding/binary"
	"fmt"
	"os"

	"lsmtree/bloom"
)

// Reader holds one SSTable's contents entirely in memory (the pack's
// simpler single-file reference implementations do the same) and serves
// Get/Scan/Entries directly against the buffered bytes plus the parsed
// sparse index and Bloom filter.
type Reader struct {
	Path string

	data []byte

	dataOffset  uint32
	indexOffset uint32
	bloomOffset uint32

	entryCount int
	index      []IndexEntry
	filter     *bloom.Filter
}

// Open reads path fully into memory and parses its header, footer, sparse
// index, and Bloom filter, returning ErrCorrupt for any structural
// violation.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sstable: open %s: %w", path, err)
	}

	if len(data) < headerSize+footerSize {
		return nil, fmt.Errorf("%w: file too small", ErrCorrupt)
	}

	if binary.LittleEndian.Uint32(data[0:4]) != Magic {
		return nil, fmt.Errorf("%w: bad header magic", ErrCorrupt)
	}
	version := data[4]
	if version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, version)
	}
	entryCount := binary.LittleEndian.Uint32(data[5:9])

	footer := data[len(data)-footerSize:]
	dataOffset := binary.LittleEndian.Uint32(footer[0:4])
	indexOffset := binary.LittleEndian.Uint32(footer[4:8])
	bloomOffset := binary.LittleEndian.Uint32(footer[8:12])
	footerMagic := binary.LittleEndian.Uint32(footer[12:16])
	if footerMagic != Magic {
		return nil, fmt.Errorf("%w: bad footer magic", ErrCorrupt)
	}
	if dataOffset != headerSize || indexOffset > bloomOffset || int(bloomOffset) > len(data)-footerSize {
		return nil, fmt.Errorf("%w: inconsistent offsets", ErrCorrupt)
	}

	index, err := parseIndex(data[indexOffset:bloomOffset])
	if err != nil {
		return nil, err
	}

	filter, err := bloom.Deserialize(data[bloomOffset : len(data)-footerSize])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return &Reader{
		Path:        path,
		data:        data,
		dataOffset:  dataOffset,
		indexOffset: indexOffset,
		bloomOffset: bloomOffset,
		entryCount:  int(entryCount),
		index:       index,
		filter:      filter,
	}, nil
}

func parseIndex(block []byte) ([]IndexEntry, error) {
	var index []IndexEntry
	pos := 0
	for pos < len(block) {
		if pos+6 > len(block) {
			return nil, fmt.Errorf("%w: truncated index entry", ErrCorrupt)
		}
		keyLen := int(binary.LittleEndian.Uint16(block[pos : pos+2]))
		offset := binary.LittleEndian.Uint32(block[pos+2 : pos+6])
		pos += 6
		if pos+keyLen > len(block) {
			return nil, fmt.Errorf("%w: truncated index key", ErrCorrupt)
		}
		key := string(block[pos : pos+keyLen])
		pos += keyLen
		index = append(index, IndexEntry{Key: key, Offset: offset})
	}
	return index, nil
}

// decodeRecordAt parses the key/value record at offset pos in r.data and
// returns the entry plus the offset immediately following it.
func (r *Reader) decodeRecordAt(pos uint32) (Entry, uint32, error) {
	if int(pos)+6 > len(r.data) {
		return Entry{}, 0, fmt.Errorf("%w: truncated record header", ErrCorrupt)
	}
	keyLen := int(binary.LittleEndian.Uint16(r.data[pos : pos+2]))
	valLen := int(binary.LittleEndian.Uint32(r.data[pos+2 : pos+6]))
	start := int(pos) + 6
	if start+keyLen+valLen > len(r.data) {
		return Entry{}, 0, fmt.Errorf("%w: truncated record body", ErrCorrupt)
	}
	key := string(r.data[start : start+keyLen])
	value := string(r.data[start+keyLen : start+keyLen+valLen])
	return Entry{Key: key, Value: value}, pos + uint32(6+keyLen+valLen), nil
}

// Get implements spec.md §4.4's Bloom-filter-gated, sparse-index-bounded
// point lookup: a negative Bloom test short-circuits to absent; otherwise
// the sparse index narrows the scan window before a final linear scan of
// that window's data records.
func (r *Reader) Get(key string) (string, bool, error) {
	if !r.filter.MightContain([]byte(key)) {
		return "", false, nil
	}

	scanStart := r.dataOffset
	scanEnd := r.indexOffset
	for _, ie := range r.index {
		if ie.Key > key {
			scanEnd = ie.Offset
			break
		}
		scanStart = ie.Offset
	}

	pos := scanStart
	for pos < scanEnd {
		entry, next, err := r.decodeRecordAt(pos)
		if err != nil {
			return "", false, err
		}
		if entry.Key == key {
			return entry.Value, true, nil
		}
		if entry.Key > key {
			return "", false, nil
		}
		pos = next
	}

	return "", false, nil
}

// Scan returns every (key, value) entry with lo <= key <= hi, in ascending
// order, via a single linear pass over the data block.
func (r *Reader) Scan(lo, hi string) ([]Entry, error) {
	var out []Entry
	pos := r.dataOffset
	for pos < r.indexOffset {
		entry, next, err := r.decodeRecordAt(pos)
		if err != nil {
			return nil, err
		}
		if entry.Key > hi {
			break
		}
		if entry.Key >= lo {
			out = append(out, entry)
		}
		pos = next
	}
	return out, nil
}

// Entries returns every entry in the table, in ascending key order.
func (r *Reader) Entries() ([]Entry, error) {
	out := make([]Entry, 0, r.entryCount)
	pos := r.dataOffset
	for pos < r.indexOffset {
		entry, next, err := r.decodeRecordAt(pos)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
		pos = next
	}
	return out, nil
}

// Count reports the number of records the table's header declares.
func (r *Reader) Count() int {
	return r.entryCount
}
