package bloom

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestAddAndMightContain(t *testing.T) {
	f := New(DefaultSize, DefaultHashCount)

	keys := []string{"name", "age", "fruit:apple", "fruit:banana"}
	for _, k := range keys {
		f.Add([]byte(k))
	}

	for _, k := range keys {
		if !f.MightContain([]byte(k)) {
			t.Fatalf("expected MightContain(%q) = true", k)
		}
	}
}

func TestNoFalseNegativesAfterManyInserts(t *testing.T) {
	f := New(DefaultSize, DefaultHashCount)

	inserted := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		k := fmt.Sprintf("key-%d", i)
		f.Add([]byte(k))
		inserted = append(inserted, k)
	}

	for _, k := range inserted {
		if !f.MightContain([]byte(k)) {
			t.Fatalf("false negative for %q", k)
		}
	}
}

func TestFalsePositiveRateBound(t *testing.T) {
	f := New(DefaultSize, DefaultHashCount)

	for i := 0; i < 100; i++ {
		f.Add([]byte(fmt.Sprintf("key-%d", i)))
	}

	r := rand.New(rand.NewSource(1))
	falsePositives := 0
	const trials = 1000
	for i := 0; i < trials; i++ {
		k := fmt.Sprintf("absent-%d", r.Int63())
		if f.MightContain([]byte(k)) {
			falsePositives++
		}
	}

	rate := float64(falsePositives) / float64(trials)
	if rate >= 0.15 {
		t.Fatalf("false positive rate %.4f exceeds 15%% bound", rate)
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	f := New(DefaultSize, DefaultHashCount)

	keys := []string{"a", "b", "c", "fruit:apple", "fruit:banana:green"}
	for _, k := range keys {
		f.Add([]byte(k))
	}

	data := f.Serialize()

	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if got.Size() != f.Size() || got.HashCount() != f.HashCount() {
		t.Fatalf("header mismatch after round trip")
	}

	for _, k := range keys {
		if !got.MightContain([]byte(k)) {
			t.Fatalf("round trip lost membership for %q", k)
		}
	}
}

func TestDeserializeRejectsTruncatedHeader(t *testing.T) {
	if _, err := Deserialize([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error on truncated header")
	}
}

func TestDeserializeRejectsTruncatedBitArray(t *testing.T) {
	f := New(64, 3)
	f.Add([]byte("x"))
	data := f.Serialize()

	if _, err := Deserialize(data[:len(data)-2]); err == nil {
		t.Fatal("expected error on truncated bit array")
	}
}

func TestHashProducesDistinctSeeds(t *testing.T) {
	f := New(1024, 7)

	seen := map[uint32]bool{}
	for i := uint8(0); i < f.hashCount; i++ {
		seen[f.hash([]byte("some-key"), i)] = true
	}

	if len(seen) < 2 {
		t.Fatalf("expected hash(i) to vary with i, got all equal")
	}
}
