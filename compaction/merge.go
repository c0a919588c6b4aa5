// Package compaction implements spec.md §4.5's size-tiered compactor: a
// k-way heap merge of same-level SSTable contents into the next level,
// grounded on the pack's own heap-based SSTable compactor (same min-heap
// shape, same newest-wins tie-break, same "advance every source holding
// the popped key" rule).
package compaction

import (
	"container/heap"

	"lsmtree/sstable"
)

// mergeItem is one in-flight candidate entry tagged with the index of the
// source sequence it came from (lower index = newer, per spec.md §3).
type mergeItem struct {
	entry    sstable.Entry
	srcIndex int
}

// mergeHeap orders by key ascending; ties are broken by srcIndex ascending
// so the newest source's entry for a duplicated key is always popped
// first.
type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].entry.Key != h[j].entry.Key {
		return h[i].entry.Key < h[j].entry.Key
	}
	return h[i].srcIndex < h[j].srcIndex
}
func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)   { *h = append(*h, x.(mergeItem)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Merge performs the k-way merge contract from spec.md §4.5: sources is a
// slice of already-ascending-sorted sequences, ordered newest (index 0) to
// oldest. Duplicated keys across sources resolve to the newest source's
// entry; every source holding that key advances past it. dropTombstones,
// when true, omits entries whose value equals tombstone from the output
// (set only when the level being drained is the deepest one holding data).
func Merge(sources [][]sstable.Entry, tombstone string, dropTombstones bool) []sstable.Entry {
	cursors := make([]int, len(sources))
	h := &mergeHeap{}
	heap.Init(h)

	for i, src := range sources {
		if len(src) > 0 {
			heap.Push(h, mergeItem{entry: src[0], srcIndex: i})
			cursors[i] = 1
		}
	}

	var out []sstable.Entry
	for h.Len() > 0 {
		top := heap.Pop(h).(mergeItem)
		advance(h, cursors, sources, top.srcIndex)

		for h.Len() > 0 && (*h)[0].entry.Key == top.entry.Key {
			dup := heap.Pop(h).(mergeItem)
			advance(h, cursors, sources, dup.srcIndex)
		}

		if dropTombstones && top.entry.Value == tombstone {
			continue
		}
		out = append(out, top.entry)
	}

	return out
}

// advance pushes the next entry (if any) from sources[srcIndex] onto h and
// moves that source's cursor forward.
func advance(h *mergeHeap, cursors []int, sources [][]sstable.Entry, srcIndex int) {
	if cursors[srcIndex] < len(sources[srcIndex]) {
		heap.Push(h, mergeItem{entry: sources[srcIndex][cursors[srcIndex]], srcIndex: srcIndex})
		cursors[srcIndex]++
	}
}
