// Package bloom implements the fixed-size Bloom filter embedded in every
// SSTable: a bit array with k independently-seeded FNV-1a-variant hash
// functions, serialized to the exact wire format SSTable footers point at.
package bloom

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// ErrCorruptFilter is returned by Deserialize when the input is too short
// or otherwise inconsistent with the size/hashCount header it claims.
var ErrCorruptFilter = errors.New("bloom: corrupt filter")

const (
	// DefaultSize is BLOOM_FILTER_SIZE: the bit-array size used by every
	// SSTable's embedded filter unless overridden.
	DefaultSize = 1024
	// DefaultHashCount is BLOOM_HASH_COUNT.
	DefaultHashCount = 7

	fnvOffsetBasis = uint32(2166136261)
	fnvPrime       = uint32(16777619)
)

// Filter is a probabilistic set supporting Add and MightContain, with no
// false negatives and a bounded false-positive rate.
type Filter struct {
	bits      *bitset.BitSet
	size      uint32
	hashCount uint8
}

// New creates an empty filter with the given bit-array size and hash count.
func New(size uint32, hashCount uint8) *Filter {
	if size == 0 {
		size = DefaultSize
	}
	if hashCount == 0 {
		hashCount = DefaultHashCount
	}
	return &Filter{
		bits:      bitset.New(uint(size)),
		size:      size,
		hashCount: hashCount,
	}
}

// hash computes the i-th seeded FNV-1a-variant hash of key, per spec: start
// with h = 2166136261 XOR i, then for every byte b of key,
// h = (h XOR b) * 16777619, all in 32-bit unsigned arithmetic. The bit
// position is h mod size.
func (f *Filter) hash(key []byte, i uint8) uint32 {
	h := fnvOffsetBasis ^ uint32(i)
	for _, b := range key {
		h = (h ^ uint32(b)) * fnvPrime
	}
	return h % f.size
}

// Add sets the k bits corresponding to key.
func (f *Filter) Add(key []byte) {
	for i := uint8(0); i < f.hashCount; i++ {
		f.bits.Set(uint(f.hash(key, i)))
	}
}

// MightContain reports false only if key is definitely absent: any of the
// k bits for key being unset is proof of absence. A true result may be a
// false positive.
func (f *Filter) MightContain(key []byte) bool {
	for i := uint8(0); i < f.hashCount; i++ {
		if !f.bits.Test(uint(f.hash(key, i))) {
			return false
		}
	}
	return true
}

// Serialize writes size(4B LE) | hashCount(1B) | bits(ceil(size/8) bytes).
func (f *Filter) Serialize() []byte {
	numBytes := (f.size + 7) / 8
	out := make([]byte, 4+1+numBytes)
	binary.LittleEndian.PutUint32(out[0:4], f.size)
	out[4] = byte(f.hashCount)

	for i := uint32(0); i < f.size; i++ {
		if f.bits.Test(uint(i)) {
			out[5+i/8] |= 1 << (i % 8)
		}
	}
	return out
}

// Deserialize reconstructs a Filter from Serialize's output. Every key
// previously Add-ed before serialization still reports MightContain=true
// after a round trip.
func Deserialize(data []byte) (*Filter, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("%w: truncated header", ErrCorruptFilter)
	}

	size := binary.LittleEndian.Uint32(data[0:4])
	hashCount := data[4]
	if size == 0 {
		return nil, fmt.Errorf("%w: zero size", ErrCorruptFilter)
	}

	numBytes := (size + 7) / 8
	bitBytes := data[5:]
	if uint32(len(bitBytes)) < numBytes {
		return nil, fmt.Errorf("%w: truncated bit array", ErrCorruptFilter)
	}

	f := New(size, hashCount)
	for i := uint32(0); i < size; i++ {
		if bitBytes[i/8]&(1<<(i%8)) != 0 {
			f.bits.Set(uint(i))
		}
	}
	return f, nil
}

// Size returns the bit-array size.
func (f *Filter) Size() uint32 { return f.size }

// HashCount returns the number of hash functions.
func (f *Filter) HashCount() uint8 { return f.hashCount }
