package memtable

import (
	"fmt"
	"math/rand"
	"testing"
)

const testTombstone = "__TOMBSTONE__"

func TestEmptySkipList(t *testing.T) {
	sl := New(testTombstone)

	if sl.Size() != 0 || sl.Count() != 0 {
		t.Fatalf("expected empty memtable, got size=%d count=%d", sl.Size(), sl.Count())
	}

	if _, ok := sl.Get("missing"); ok {
		t.Fatal("expected not found in empty skip list")
	}
}

func TestPutAndGetSingle(t *testing.T) {
	sl := New(testTombstone)
	sl.Put("name", "Alice")

	val, ok := sl.Get("name")
	if !ok || val != "Alice" {
		t.Fatalf("expected (Alice,true), got (%v,%v)", val, ok)
	}
}

func TestUpdateExistingKeyAdjustsByteSize(t *testing.T) {
	sl := New(testTombstone)
	sl.Put("name", "Al") // 4 + 2 = 6
	sl.Put("name", "Alice")

	val, ok := sl.Get("name")
	if !ok || val != "Alice" {
		t.Fatalf("update failed, got (%v,%v)", val, ok)
	}

	if sl.Count() != 1 {
		t.Fatalf("expected count 1, got %d", sl.Count())
	}

	want := len("name") + len("Alice")
	if sl.Size() != want {
		t.Fatalf("expected size %d, got %d", want, sl.Size())
	}
}

func TestByteSizeIdentity(t *testing.T) {
	sl := New(testTombstone)

	entries := map[string]string{
		"a": "1", "b": "22", "c": "333", "d": "4444",
	}
	for k, v := range entries {
		sl.Put(k, v)
	}
	sl.Put("a", "updated") // update changes delta
	entries["a"] = "updated"
	sl.Delete("b") // delete still occupies a record with tombstone value
	entries["b"] = testTombstone

	want := 0
	for k, v := range entries {
		want += len(k) + len(v)
	}

	if sl.Size() != want {
		t.Fatalf("byte size identity violated: got %d want %d", sl.Size(), want)
	}
}

func TestSequentialInsertAndGet(t *testing.T) {
	sl := New(testTombstone)

	for i := 1; i <= 1000; i++ {
		sl.Put(fmt.Sprintf("key-%04d", i), fmt.Sprintf("val-%d", i*i))
	}

	for i := 1; i <= 1000; i++ {
		v, ok := sl.Get(fmt.Sprintf("key-%04d", i))
		want := fmt.Sprintf("val-%d", i*i)
		if !ok || v != want {
			t.Fatalf("bad value for key %d: got %q want %q", i, v, want)
		}
	}

	if sl.Count() != 1000 {
		t.Fatalf("expected count 1000, got %d", sl.Count())
	}
}

func TestRandomInsertAndGet(t *testing.T) {
	sl := New(testTombstone)
	m := map[string]string{}

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		k := fmt.Sprintf("k%d", r.Intn(500))
		v := fmt.Sprintf("v%d", r.Intn(99999))
		sl.Put(k, v)
		m[k] = v
	}

	for k, v := range m {
		got, ok := sl.Get(k)
		if !ok || got != v {
			t.Fatalf("bad value for key %s: got %s want %s", k, got, v)
		}
	}
}

func TestDeleteHidesButOccupiesRecord(t *testing.T) {
	sl := New(testTombstone)

	for i := 0; i < 100; i++ {
		sl.Put(fmt.Sprintf("k%03d", i), fmt.Sprintf("v%d", i))
	}

	for i := 0; i < 100; i += 2 {
		sl.Delete(fmt.Sprintf("k%03d", i))
	}

	if sl.Count() != 100 {
		t.Fatalf("tombstones should still occupy records, expected count 100, got %d", sl.Count())
	}

	for i := 0; i < 100; i++ {
		v, ok := sl.Get(fmt.Sprintf("k%03d", i))
		if !ok {
			t.Fatalf("key %d should still be present (possibly as tombstone)", i)
		}
		if i%2 == 0 && v != testTombstone {
			t.Fatalf("key %d should read back as tombstone, got %q", i, v)
		}
		if i%2 == 1 && v == testTombstone {
			t.Fatalf("key %d should not be deleted", i)
		}
	}
}

func TestEntriesOrderedAscending(t *testing.T) {
	sl := New(testTombstone)

	r := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		sl.Put(fmt.Sprintf("k%05d", r.Intn(10000)), fmt.Sprintf("v%d", i))
	}

	entries := sl.Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Key > entries[i].Key {
			t.Fatalf("entries out of order: %q > %q", entries[i-1].Key, entries[i].Key)
		}
	}

	if len(entries) != sl.Count() {
		t.Fatalf("entries count mismatch: got %d want %d", len(entries), sl.Count())
	}
}

func TestScanBounds(t *testing.T) {
	sl := New(testTombstone)
	sl.Put("fruit:apple", "red")
	sl.Put("fruit:banana", "yellow")
	sl.Put("fruit:cherry", "dark red")
	sl.Put("vegetable:carrot", "orange")

	got := sl.Scan("fruit:a", "fruit:d")
	want := []Record{
		{Key: "fruit:apple", Value: "red"},
		{Key: "fruit:banana", Value: "yellow"},
		{Key: "fruit:cherry", Value: "dark red"},
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d mismatch: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestScanEmptyRange(t *testing.T) {
	sl := New(testTombstone)
	sl.Put("a", "1")
	sl.Put("z", "2")

	if got := sl.Scan("m", "n"); len(got) != 0 {
		t.Fatalf("expected no entries in empty range, got %v", got)
	}
}

func TestClearResetsState(t *testing.T) {
	sl := New(testTombstone)
	for i := 0; i < 50; i++ {
		sl.Put(fmt.Sprintf("k%d", i), fmt.Sprintf("v%d", i))
	}

	sl.Clear()

	if sl.Size() != 0 || sl.Count() != 0 {
		t.Fatalf("expected empty after Clear, got size=%d count=%d", sl.Size(), sl.Count())
	}
	if _, ok := sl.Get("k0"); ok {
		t.Fatal("expected no entries after Clear")
	}

	sl.Put("fresh", "value")
	if v, ok := sl.Get("fresh"); !ok || v != "value" {
		t.Fatalf("memtable unusable after Clear: got (%v,%v)", v, ok)
	}
}
