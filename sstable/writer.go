package sstable

import (
	"encoding/binary"
	"fmt"
	"os"

	"lsmtree/bloom"
)

// Write serializes entries (which must already be in strictly ascending
// key order — the caller is the MemTable's Entries()/flush path) to path,
// building the sparse index every interval-th record and an embedded Bloom
// filter of the given size/hash count (BLOOM_FILTER_SIZE/BLOOM_HASH_COUNT,
// spec.md §6). interval <= 0 defaults to DefaultSparseIndexInterval;
// bloomSize/bloomHashCount of zero default the same way bloom.New does.
func Write(path string, entries []Entry, interval int, bloomSize uint32, bloomHashCount uint8) (err error) {
	if interval <= 0 {
		interval = DefaultSparseIndexInterval
	}

	for i := 1; i < len(entries); i++ {
		if entries[i-1].Key >= entries[i].Key {
			return ErrUnsortedInput
		}
	}

	f, createErr := os.Create(path)
	if createErr != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailure, createErr)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrWriteFailure, cerr)
		}
	}()

	filter := bloom.New(bloomSize, bloomHashCount)
	for _, e := range entries {
		filter.Add([]byte(e.Key))
	}

	// Write the header up front; it is never patched afterwards, since
	// dataOffset is always headerSize and the other offsets live in the footer.
	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], Magic)
	header[4] = Version
	binary.LittleEndian.PutUint32(header[5:9], uint32(len(entries)))
	if _, werr := f.Write(header); werr != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailure, werr)
	}

	dataOffset := uint32(headerSize)
	offset := dataOffset
	var index []IndexEntry
	recordBuf := make([]byte, 0, 256)
	for i, e := range entries {
		if i%interval == 0 {
			index = append(index, IndexEntry{Key: e.Key, Offset: offset})
		}

		recordBuf = recordBuf[:0]
		recordBuf = append(recordBuf, 0, 0, 0, 0, 0, 0)
		binary.LittleEndian.PutUint16(recordBuf[0:2], uint16(len(e.Key)))
		binary.LittleEndian.PutUint32(recordBuf[2:6], uint32(len(e.Value)))
		recordBuf = append(recordBuf, e.Key...)
		recordBuf = append(recordBuf, e.Value...)

		if _, werr := f.Write(recordBuf); werr != nil {
			return fmt.Errorf("%w: %v", ErrWriteFailure, werr)
		}
		offset += uint32(len(recordBuf))
	}

	indexOffset := offset
	for _, ie := range index {
		buf := make([]byte, 6+len(ie.Key))
		binary.LittleEndian.PutUint16(buf[0:2], uint16(len(ie.Key)))
		binary.LittleEndian.PutUint32(buf[2:6], ie.Offset)
		copy(buf[6:], ie.Key)
		if _, werr := f.Write(buf); werr != nil {
			return fmt.Errorf("%w: %v", ErrWriteFailure, werr)
		}
		offset += uint32(len(buf))
	}

	bloomOffset := offset
	filterBytes := filter.Serialize()
	if _, werr := f.Write(filterBytes); werr != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailure, werr)
	}
	offset += uint32(len(filterBytes))

	footer := make([]byte, footerSize)
	binary.LittleEndian.PutUint32(footer[0:4], dataOffset)
	binary.LittleEndian.PutUint32(footer[4:8], indexOffset)
	binary.LittleEndian.PutUint32(footer[8:12], bloomOffset)
	binary.LittleEndian.PutUint32(footer[12:16], Magic)
	if _, werr := f.Write(footer); werr != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailure, werr)
	}

	if serr := f.Sync(); serr != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailure, serr)
	}

	return nil
}
