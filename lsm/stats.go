package lsm

import (
	"os"
	"strings"
)

// LevelStats reports one level's table count and total on-disk size.
type LevelStats struct {
	Level      int
	TableCount int
	TotalBytes int64
}

// Stats is a read-only snapshot of the engine's current state (spec.md
// §4.6: "counts, byte sizes, per-level table counts, file sizes"). It is
// computed fresh on every call, not memoized, and is not on any hot path.
type Stats struct {
	MemTableEntries int
	MemTableBytes   int
	Levels          []LevelStats
}

// Stats returns a snapshot of MemTable occupancy and per-level table
// counts/sizes.
func (e *Engine) Stats() (Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpen(); err != nil {
		return Stats{}, err
	}

	stats := Stats{
		MemTableEntries: e.memTable.Count(),
		MemTableBytes:   e.memTable.Size(),
		Levels:          make([]LevelStats, len(e.levels)),
	}

	for l, tables := range e.levels {
		var total int64
		for _, table := range tables {
			if info, err := os.Stat(table.Path); err == nil {
				total += info.Size()
			}
		}
		stats.Levels[l] = LevelStats{Level: l, TableCount: len(tables), TotalBytes: total}
	}

	return stats, nil
}

// Inspect returns a bounded, ascending-by-key sample of the engine's
// current logical contents (MemTable overlaid on every level), capped at
// limit entries. limit <= 0 means unbounded.
func (e *Engine) Inspect(limit int) ([]Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpen(); err != nil {
		return nil, err
	}

	byKey, err := e.scanAllLocked("", maxKeySentinel)
	if err != nil {
		return nil, err
	}

	entries := sortedEntries(byKey)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// maxKeySentinel sorts after any realistic text key for an unbounded
// Inspect scan; keys are compared as Go strings (byte sequences), and this
// is built from the maximal single-byte value repeated, which no UTF-8
// text key will lexicographically exceed.
var maxKeySentinel = strings.Repeat("\xff", 64)
