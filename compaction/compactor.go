package compaction

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lsmtree/sstable"
)

// Levels is the orchestrator's level→tables mapping: levels[L][0] is the
// newest table at level L, levels[L][len-1] the oldest.
type Levels [][]*sstable.Reader

// Result reports what one Run call did, for logging/Inspect purposes.
type Result struct {
	// MovedFromLevel is the set of levels that were drained into the next
	// level during this call (empty if nothing met the threshold).
	MovedFromLevel []int
	// RemovedFiles lists every source file path unlinked during this call.
	RemovedFiles []string
}

// Run implements spec.md §4.5's compact(levels, dataDir): scanning levels
// 0..len(levels)-2 in order, draining any level whose table count reaches
// sizeRatio into a freshly merged file at the next level, dropping
// tombstones only when no level below the one being drained holds data.
// Moves cascade within a single call: the table written into level l+1
// counts toward that level's threshold when the loop reaches it. Each level
// is visited once per call, in ascending order.
func Run(levels Levels, dataDir string, sizeRatio int, tombstone string, sparseInterval int, bloomSize uint32, bloomHashCount uint8) (Levels, Result, error) {
	var result Result

	for l := 0; l < len(levels)-1; l++ {
		if len(levels[l]) < sizeRatio {
			continue
		}

		sources := make([][]sstable.Entry, len(levels[l]))
		for i, table := range levels[l] {
			entries, err := table.Entries()
			if err != nil {
				return levels, result, fmt.Errorf("compaction: read level %d table %s: %w", l, table.Path, err)
			}
			sources[i] = entries
		}

		hasOlderLevels := false
		for m := l + 1; m < len(levels); m++ {
			if len(levels[m]) > 0 {
				hasOlderLevels = true
				break
			}
		}
		dropTombstones := !hasOlderLevels

		merged := Merge(sources, tombstone, dropTombstones)

		// Per spec.md §4.5 steps 4-5: the merged L+1 file must be written,
		// synced, and opened *before* the level-L source files are
		// unlinked, so a crash mid-compaction never leaves neither copy of
		// the data durable on disk.
		if len(merged) > 0 {
			entries := make([]sstable.Entry, len(merged))
			copy(entries, merged)

			path, err := writeNextLevelFile(dataDir, l+1, entries, sparseInterval, bloomSize, bloomHashCount)
			if err != nil {
				return levels, result, err
			}

			reader, err := sstable.Open(path)
			if err != nil {
				return levels, result, fmt.Errorf("compaction: open newly written table %s: %w", path, err)
			}

			levels[l+1] = append([]*sstable.Reader{reader}, levels[l+1]...)
		}

		removed := make([]string, 0, len(levels[l]))
		for _, table := range levels[l] {
			if err := os.Remove(table.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return levels, result, fmt.Errorf("compaction: unlink %s: %w", table.Path, err)
			}
			removed = append(removed, table.Path)
		}
		result.RemovedFiles = append(result.RemovedFiles, removed...)
		result.MovedFromLevel = append(result.MovedFromLevel, l)
		levels[l] = nil
	}

	return levels, result, nil
}

// writeNextLevelFile picks a collision-free filename (per SPEC_FULL.md's
// Open Question resolution: the lowest "_<seq>" suffix not already on disk
// disambiguates same-millisecond writes) and writes the merged entries to it.
func writeNextLevelFile(dataDir string, level int, entries []sstable.Entry, sparseInterval int, bloomSize uint32, bloomHashCount uint8) (string, error) {
	ts := time.Now().UnixMilli()

	var path string
	for seq := 0; ; seq++ {
		candidate := filepath.Join(dataDir, sstable.FileName(level, ts, seq))
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			path = candidate
			break
		}
	}

	if err := sstable.Write(path, entries, sparseInterval, bloomSize, bloomHashCount); err != nil {
		return "", fmt.Errorf("compaction: write %s: %w", path, err)
	}
	return path, nil
}
